package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCaptionText(t *testing.T) {
	assert.NoError(t, ValidateCaptionText(""))
	assert.NoError(t, ValidateCaptionText("こんにちは 世界"))
	assert.NoError(t, ValidateCaptionText("line one\nline two"))
	assert.NoError(t, ValidateCaptionText(strings.Repeat("あ", MaxCaptionRunes)))

	assert.Error(t, ValidateCaptionText(strings.Repeat("あ", MaxCaptionRunes+1)))
	assert.Error(t, ValidateCaptionText("bad \x00 byte"))
	assert.Error(t, ValidateCaptionText(string([]byte{0xff, 0xfe})))
}

func TestValidateDescription(t *testing.T) {
	assert.NoError(t, ValidateDescription(`{"type":"offer","sdp":"v=0"}`))
	assert.Error(t, ValidateDescription("   "))
	assert.Error(t, ValidateDescription(strings.Repeat("x", MaxDescriptionBytes+1)))
}

func TestValidateSubject(t *testing.T) {
	assert.NoError(t, ValidateSubject("operator@desk-1"))
	assert.Error(t, ValidateSubject(""))
	assert.Error(t, ValidateSubject("has space"))
	assert.Error(t, ValidateSubject(strings.Repeat("a", MaxSubjectLength+1)))
}

func TestValidateVoiceName(t *testing.T) {
	assert.NoError(t, ValidateVoiceName("Kyoko"))
	assert.Error(t, ValidateVoiceName(strings.Repeat("v", MaxVoiceNameLength+1)))
}

func TestValidateICEURL(t *testing.T) {
	for _, u := range []string{"stun:stun.l.google.com:19302", "turns:turn.example.org:5349"} {
		assert.NoError(t, ValidateICEURL(u), u)
	}
	for _, u := range []string{"", "stun:", "http://example.org", "stun.l.google.com"} {
		assert.Error(t, ValidateICEURL(u), u)
	}
}

func TestValidateStringLength(t *testing.T) {
	assert.NoError(t, ValidateStringLength("日本語", 1, 3, "name"))
	assert.Error(t, ValidateStringLength("日本語テキスト", 1, 3, "name"))
	assert.Error(t, ValidateNonEmptyString(" ", "name"))
}
