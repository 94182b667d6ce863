package services

import (
	"unicode"
)

type scriptClass int

const (
	classOther scriptClass = iota
	classHiragana
	classKatakana
	classKanji
	classWord
)

func classify(r rune) scriptClass {
	switch {
	case r >= 0x3040 && r <= 0x309F:
		return classHiragana
	case r >= 0x30A0 && r <= 0x30FF:
		return classKatakana
	case r >= 0x3400 && r <= 0x9FFF:
		return classKanji
	case unicode.IsLetter(r) || unicode.IsDigit(r):
		return classWord
	default:
		return classOther
	}
}

// segmentEnglish splits text into words and single punctuation marks,
// dropping whitespace. Apostrophes inside a word keep it whole ("don't").
func segmentEnglish(text string) []string {
	var (
		out  []string
		word []rune
	)
	flush := func() {
		if len(word) > 0 {
			out = append(out, string(word))
			word = word[:0]
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word = append(word, r)
		case (r == '\'' || r == '’') && len(word) > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			word = append(word, r)
		default:
			flush()
			out = append(out, string(r))
		}
	}
	flush()
	return out
}

// segmentJapanese splits unspaced Japanese text. Dictionary words are
// matched longest first; everything else is grouped into runs of the same
// script so that unknown words survive intact. Whitespace is dropped.
func segmentJapanese(text string, dict *phraseDictionary) []string {
	var (
		out     []string
		pending []rune
		class   scriptClass
	)
	flush := func() {
		if len(pending) > 0 {
			out = append(out, string(pending))
			pending = pending[:0]
		}
	}

	runes := []rune(text)
	for i := 0; i < len(runes); {
		r := runes[i]
		if unicode.IsSpace(r) {
			flush()
			i++
			continue
		}

		if n := dict.matchJapanese(runes[i:]); n > 0 {
			flush()
			out = append(out, string(runes[i:i+n]))
			i += n
			continue
		}

		c := classify(r)
		if c == classOther {
			flush()
			out = append(out, string(r))
			i++
			continue
		}
		if len(pending) > 0 && c != class {
			flush()
		}
		class = c
		pending = append(pending, r)
		i++
	}
	flush()
	return out
}

// matchJapanese returns the rune length of the longest dictionary key that
// prefixes runes, or 0.
func (d *phraseDictionary) matchJapanese(runes []rune) int {
	limit := d.maxJaRunes
	if len(runes) < limit {
		limit = len(runes)
	}
	for n := limit; n >= 1; n-- {
		if _, ok := d.jaEn[string(runes[:n])]; ok {
			return n
		}
	}
	return 0
}
