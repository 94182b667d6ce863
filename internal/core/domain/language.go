package domain

import "fmt"

type Language string

const (
	LanguageAuto     Language = "auto"
	LanguageJapanese Language = "ja"
	LanguageEnglish  Language = "en"
)

// IsConcrete reports whether the language names an actual language rather than auto.
func (l Language) IsConcrete() bool {
	return l != LanguageAuto && l != ""
}

// ParseLanguage validates a configured language
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LanguageAuto, LanguageJapanese, LanguageEnglish:
		return Language(s), nil
	default:
		return "", fmt.Errorf("unknown language %q", s)
	}
}

type TranslationMode string

const (
	TranslationNone     TranslationMode = "none"
	TranslationMockTag  TranslationMode = "mock-tag"
	TranslationMiniDict TranslationMode = "mini-dict"
)

// ParseTranslationMode validates a configured translation mode
func ParseTranslationMode(s string) (TranslationMode, error) {
	switch TranslationMode(s) {
	case TranslationNone, TranslationMockTag, TranslationMiniDict:
		return TranslationMode(s), nil
	default:
		return "", fmt.Errorf("unknown translation mode %q", s)
	}
}

// TranslationConfig is the translation applied to outbound captions
type TranslationConfig struct {
	SourceLang Language
	TargetLang Language
	Mode       TranslationMode
}

// VoiceHint tells a speech synthesizer which voice to prefer.
type VoiceHint struct {
	Lang string // BCP 47 tag, e.g. ja-JP
	Name string
}
