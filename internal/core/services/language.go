package services

import "manualcall/internal/core/domain"

// Detect reports ja when text contains any Hiragana, Katakana or CJK
// ideograph, en otherwise.
func Detect(text string) domain.Language {
	for _, r := range text {
		if isJapaneseRune(r) {
			return domain.LanguageJapanese
		}
	}
	return domain.LanguageEnglish
}

// Resolve returns lang unless it is auto, in which case the language is detected from text.
func Resolve(lang domain.Language, text string) domain.Language {
	if lang.IsConcrete() {
		return lang
	}
	return Detect(text)
}

func opposite(lang domain.Language) domain.Language {
	if lang == domain.LanguageJapanese {
		return domain.LanguageEnglish
	}
	return domain.LanguageJapanese
}

// isJapaneseRune covers Hiragana, Katakana (U+3040-U+30FF) and CJK
// extension A plus the unified ideographs (U+3400-U+9FFF).
func isJapaneseRune(r rune) bool {
	return (r >= 0x3040 && r <= 0x30FF) || (r >= 0x3400 && r <= 0x9FFF)
}
