package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatClock(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{59*time.Second + 900*time.Millisecond, "00:59"},
		{2*time.Minute + 5*time.Second, "02:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatClock(tc.d), tc.d.String())
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.50s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m5s", FormatDuration(2*time.Minute+5*time.Second))
	assert.Equal(t, "1h2m", FormatDuration(time.Hour+2*time.Minute))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hello", TruncateRunes("hello", 5))
	assert.Equal(t, "hell…", TruncateRunes("hello world", 5))
	assert.Equal(t, "こんにちは…", TruncateRunes("こんにちは世界です", 6))
	assert.Equal(t, "こ", TruncateRunes("こんにちは", 1))
	assert.Equal(t, "", TruncateRunes("hello", 0))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("", 4))
	assert.Equal(t, "****", MaskSecret("abcd", 4))
	assert.Equal(t, "******7890", MaskSecret("1234567890", 4))
	assert.Equal(t, "***", MaskSecret("abc", -1))
}
