package services_test

import (
	"context"
	"strings"
	"testing"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func translate(t *testing.T, text string, from, to domain.Language, mode domain.TranslationMode) string {
	t.Helper()
	out, err := services.NewCaptionTranslator().Translate(context.Background(), text, from, to, mode)
	require.NoError(t, err)
	return out
}

func TestTranslatePassThrough(t *testing.T) {
	langs := []domain.Language{domain.LanguageAuto, domain.LanguageJapanese, domain.LanguageEnglish}
	for _, from := range langs {
		for _, to := range langs {
			assert.Equal(t, "hello", translate(t, "hello", from, to, domain.TranslationNone))
		}
	}
}

func TestTranslateSameLanguageIsIdentity(t *testing.T) {
	modes := []domain.TranslationMode{domain.TranslationNone, domain.TranslationMockTag, domain.TranslationMiniDict}
	langs := []domain.Language{domain.LanguageJapanese, domain.LanguageEnglish}
	texts := []string{"hello", "thank you", "こんにちは", "ありがとう"}

	for _, mode := range modes {
		for _, lang := range langs {
			for _, text := range texts {
				t.Run(string(mode)+"/"+string(lang)+"/"+text, func(t *testing.T) {
					assert.Equal(t, text, translate(t, text, lang, lang, mode))
				})
			}
		}
	}
}

func TestTranslateMiniDictEnglishToJapanese(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"hello", "こんにちは"},
		{"thank you", "ありがとうございます"},
		{"Thank You!", "ありがとうございます!"},
		{"thanks", "ありがとう"},
		{"good morning doctor", "おはようございます医者"},
		{"where toilet", "どこトイレ"},
		{"hello world", "こんにちはworld"},
		{"  hello   ", "こんにちは"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, translate(t, tt.text, domain.LanguageEnglish, domain.LanguageJapanese, domain.TranslationMiniDict))
		})
	}
}

func TestTranslateMiniDictJapaneseToEnglish(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"こんにちは", "hello"},
		{"ありがとうございます", "thank you"},
		{"病院どこ", "hospital where"},
		{"トイレ", "restroom"},
		{"こんにちは、医者", "hello 、 doctor"},
		{"未知語", "未知語"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, translate(t, tt.text, domain.LanguageJapanese, domain.LanguageEnglish, domain.TranslationMiniDict))
		})
	}
}

func TestTranslateAutoResolves(t *testing.T) {
	assert.Equal(t, "こんにちは", translate(t, "hello", domain.LanguageAuto, domain.LanguageAuto, domain.TranslationMiniDict))
	assert.Equal(t, "hello", translate(t, "こんにちは", domain.LanguageAuto, domain.LanguageAuto, domain.TranslationMiniDict))
	assert.Equal(t, "hello", translate(t, "hello", domain.LanguageAuto, domain.LanguageEnglish, domain.TranslationMiniDict))
}

func TestTranslateMockTag(t *testing.T) {
	cases := []struct {
		text     string
		from, to domain.Language
		prefix   string
	}{
		{"hello", domain.LanguageEnglish, domain.LanguageJapanese, "JA: "},
		{"hello", domain.LanguageAuto, domain.LanguageAuto, "JA: "},
		{"こんにちは", domain.LanguageAuto, domain.LanguageAuto, "EN: "},
		{"こんにちは", domain.LanguageJapanese, domain.LanguageEnglish, "EN: "},
		{"anything", domain.LanguageAuto, domain.LanguageJapanese, "JA: "},
	}
	for _, c := range cases {
		out := translate(t, c.text, c.from, c.to, domain.TranslationMockTag)
		assert.True(t, strings.HasPrefix(out, c.prefix), "got %q", out)
		assert.Equal(t, c.prefix+c.text, out)
	}
}

func TestTranslateHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := services.NewCaptionTranslator().Translate(ctx, "hello", domain.LanguageEnglish, domain.LanguageJapanese, domain.TranslationMiniDict)
	assert.ErrorIs(t, err, context.Canceled)
}
