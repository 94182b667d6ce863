package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, text string, from, to domain.Language, mode domain.TranslationMode) (string, error) {
	args := m.Called(ctx, text, from, to, mode)
	return args.String(0), args.Error(1)
}

func TestCachedTranslatorMemoizes(t *testing.T) {
	next := new(MockTranslator)
	next.On("Translate", mock.Anything, "hello", domain.LanguageEnglish, domain.LanguageJapanese, domain.TranslationMiniDict).
		Return("こんにちは", nil).Once()

	tr := services.NewCachedTranslator(next, time.Minute)
	defer tr.Close()

	for i := 0; i < 3; i++ {
		out, err := tr.Translate(context.Background(), "hello", domain.LanguageEnglish, domain.LanguageJapanese, domain.TranslationMiniDict)
		require.NoError(t, err)
		assert.Equal(t, "こんにちは", out)
	}
	next.AssertNumberOfCalls(t, "Translate", 1)
}

func TestCachedTranslatorKeysOnMode(t *testing.T) {
	tr := services.NewCachedTranslator(services.NewCaptionTranslator(), time.Minute)
	defer tr.Close()

	ctx := context.Background()
	dict, err := tr.Translate(ctx, "hello", domain.LanguageEnglish, domain.LanguageJapanese, domain.TranslationMiniDict)
	require.NoError(t, err)
	tag, err := tr.Translate(ctx, "hello", domain.LanguageEnglish, domain.LanguageJapanese, domain.TranslationMockTag)
	require.NoError(t, err)

	assert.Equal(t, "こんにちは", dict)
	assert.Equal(t, "JA: hello", tag)
}

func TestCachedTranslatorSkipsPassThrough(t *testing.T) {
	next := new(MockTranslator)
	tr := services.NewCachedTranslator(next, time.Minute)
	defer tr.Close()

	out, err := tr.Translate(context.Background(), "hello", domain.LanguageAuto, domain.LanguageAuto, domain.TranslationNone)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	next.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedTranslatorDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("boom")
	next := new(MockTranslator)
	next.On("Translate", mock.Anything, "hi", domain.LanguageEnglish, domain.LanguageJapanese, domain.TranslationMiniDict).
		Return("", boom).Once()
	next.On("Translate", mock.Anything, "hi", domain.LanguageEnglish, domain.LanguageJapanese, domain.TranslationMiniDict).
		Return("やあ", nil).Once()

	tr := services.NewCachedTranslator(next, time.Minute)
	defer tr.Close()

	_, err := tr.Translate(context.Background(), "hi", domain.LanguageEnglish, domain.LanguageJapanese, domain.TranslationMiniDict)
	assert.ErrorIs(t, err, boom)

	out, err := tr.Translate(context.Background(), "hi", domain.LanguageEnglish, domain.LanguageJapanese, domain.TranslationMiniDict)
	require.NoError(t, err)
	assert.Equal(t, "やあ", out)
	next.AssertExpectations(t)
}
