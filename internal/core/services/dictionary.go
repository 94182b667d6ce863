package services

import "unicode/utf8"

// maxPhraseTokens bounds the English phrase lookahead.
const maxPhraseTokens = 3

type dictEntry struct {
	en string
	ja string
}

// miniDictEntries is the bundled English/Japanese phrase list. Order matters
// for the reverse table: when two English keys share a Japanese value the
// later one wins.
var miniDictEntries = []dictEntry{
	{"hello", "こんにちは"},
	{"hi", "やあ"},
	{"good morning", "おはようございます"},
	{"good evening", "こんばんは"},
	{"how are you", "お元気ですか"},
	{"thank you", "ありがとうございます"},
	{"thanks", "ありがとう"},
	{"please", "お願いします"},
	{"sorry", "ごめんなさい"},
	{"yes", "はい"},
	{"no", "いいえ"},
	{"ok", "OK"},
	{"help", "助けて"},
	{"doctor", "医者"},
	{"hospital", "病院"},
	{"ambulance", "救急車"},
	{"pain", "痛み"},
	{"headache", "頭痛"},
	{"stomachache", "腹痛"},
	{"allergy", "アレルギー"},
	{"medicine", "薬"},
	{"water", "水"},
	{"food", "食べ物"},
	{"toilet", "トイレ"},
	{"restroom", "トイレ"},
	{"where", "どこ"},
	{"i", "私"},
	{"you", "あなた"},
}

type phraseDictionary struct {
	enJa map[string]string
	jaEn map[string]string
	// longest Japanese key in runes, bounds the segmenter lookahead
	maxJaRunes int
}

func newPhraseDictionary(entries []dictEntry) *phraseDictionary {
	d := &phraseDictionary{
		enJa: make(map[string]string, len(entries)),
		jaEn: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		d.enJa[e.en] = e.ja
		d.jaEn[e.ja] = e.en
		if n := utf8.RuneCountInString(e.ja); n > d.maxJaRunes {
			d.maxJaRunes = n
		}
	}
	return d
}

var defaultDictionary = newPhraseDictionary(miniDictEntries)
