package services

import (
	"manualcall/internal/core/domain"

	"golang.org/x/text/language"
)

var (
	japaneseVoice = language.MustParse("ja-JP")
	englishVoice  = language.AmericanEnglish
)

// VoiceFor picks the speech voice for text. pref auto follows the text's script.
func VoiceFor(pref domain.Language, name, text string) domain.VoiceHint {
	tag := englishVoice
	if Resolve(pref, text) == domain.LanguageJapanese {
		tag = japaneseVoice
	}
	return domain.VoiceHint{Lang: tag.String(), Name: name}
}
