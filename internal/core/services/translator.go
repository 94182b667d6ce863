package services

import (
	"context"
	"strings"

	"manualcall/internal/core/domain"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CaptionTranslator is the bundled translator. It never touches the network;
// ctx is honoured so callers can treat it like a remote service.
type CaptionTranslator struct {
	dict *phraseDictionary
}

// NewCaptionTranslator creates a translator backed by the built-in dictionary
func NewCaptionTranslator() *CaptionTranslator {
	return &CaptionTranslator{dict: defaultDictionary}
}

// Translate converts text from one language to another using mode. It is the
// identity for mode none and for equal concrete languages
func (t *CaptionTranslator) Translate(ctx context.Context, text string, from, to domain.Language, mode domain.TranslationMode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if mode == domain.TranslationNone || (from.IsConcrete() && from == to) {
		return text, nil
	}

	src := Resolve(from, text)
	tgt := to
	if !tgt.IsConcrete() {
		tgt = opposite(src)
	}

	switch mode {
	case domain.TranslationMockTag:
		return strings.ToUpper(string(tgt)) + ": " + text, nil
	case domain.TranslationMiniDict:
		return t.miniDict(text, src, tgt), nil
	default:
		return text, nil
	}
}

func (t *CaptionTranslator) miniDict(text string, src, tgt domain.Language) string {
	switch {
	case src == tgt:
		return text
	case src == domain.LanguageEnglish && tgt == domain.LanguageJapanese:
		return t.englishToJapanese(text)
	case src == domain.LanguageJapanese && tgt == domain.LanguageEnglish:
		return t.japaneseToEnglish(text)
	default:
		return text
	}
}

func (t *CaptionTranslator) englishToJapanese(text string) string {
	tokens := segmentEnglish(text)
	lower := cases.Lower(language.English)

	var b strings.Builder
	for i := 0; i < len(tokens); {
		matched := false
		for n := min(maxPhraseTokens, len(tokens)-i); n >= 1; n-- {
			key := lower.String(norm.NFKC.String(strings.Join(tokens[i:i+n], " ")))
			if ja, ok := t.dict.enJa[key]; ok {
				b.WriteString(ja)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			b.WriteString(tokens[i])
			i++
		}
	}
	return b.String()
}

func (t *CaptionTranslator) japaneseToEnglish(text string) string {
	tokens := segmentJapanese(text, t.dict)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if en, ok := t.dict.jaEn[norm.NFKC.String(tok)]; ok {
			out = append(out, en)
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}
