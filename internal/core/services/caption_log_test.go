package services_test

import (
	"fmt"
	"sync"
	"testing"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptionLogKeepsMostRecent(t *testing.T) {
	log := services.NewCaptionLog(services.DefaultCaptionLogLimit)

	for i := 0; i < 60; i++ {
		log.Append(fmt.Sprintf("caption-%d", i), domain.OriginSelf)
	}

	entries := log.Entries()
	require.Len(t, entries, 50)
	assert.Equal(t, "caption-10", entries[0].Text)
	assert.Equal(t, "caption-59", entries[49].Text)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("caption-%d", i+10), e.Text)
	}
}

func TestCaptionLogBelowLimit(t *testing.T) {
	log := services.NewCaptionLog(3)

	log.Append("a", domain.OriginSelf)
	log.Append("b", domain.OriginRemote)

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.OriginSelf, entries[0].Origin)
	assert.Equal(t, domain.OriginRemote, entries[1].Origin)
	assert.False(t, entries[1].At.IsZero())
	assert.Equal(t, 3, log.Limit())
}

func TestCaptionLogDefaultLimit(t *testing.T) {
	assert.Equal(t, services.DefaultCaptionLogLimit, services.NewCaptionLog(0).Limit())
}

func TestCaptionLogEntriesIsCopy(t *testing.T) {
	log := services.NewCaptionLog(2)
	log.Append("a", domain.OriginSelf)

	entries := log.Entries()
	entries[0].Text = "mutated"
	assert.Equal(t, "a", log.Entries()[0].Text)
}

func TestCaptionLogConcurrentAppend(t *testing.T) {
	log := services.NewCaptionLog(10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				log.Append(fmt.Sprintf("%d-%d", n, j), domain.OriginRemote)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, log.Len())
}
