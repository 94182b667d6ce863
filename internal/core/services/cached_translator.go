package services

import (
	"context"
	"time"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/ports"
	"manualcall/pkg/cache"
)

type translationKey struct {
	mode     domain.TranslationMode
	from, to domain.Language
	text     string
}

// CachedTranslator memoizes another translator's results.
type CachedTranslator struct {
	next  ports.Translator
	cache *cache.Cache[translationKey, string]
}

// NewCachedTranslator wraps next with a cache whose entries live for ttl
func NewCachedTranslator(next ports.Translator, ttl time.Duration) *CachedTranslator {
	return &CachedTranslator{
		next:  next,
		cache: cache.New[translationKey, string](ttl),
	}
}

// Translate returns the cached translation or asks next. Errors are not cached
func (t *CachedTranslator) Translate(ctx context.Context, text string, from, to domain.Language, mode domain.TranslationMode) (string, error) {
	if mode == domain.TranslationNone {
		return text, nil
	}

	key := translationKey{mode: mode, from: from, to: to, text: text}
	return t.cache.GetOrLoad(ctx, key, func(ctx context.Context) (string, error) {
		return t.next.Translate(ctx, text, from, to, mode)
	})
}

// Close stops the cache janitor
func (t *CachedTranslator) Close() {
	t.cache.Stop()
}
