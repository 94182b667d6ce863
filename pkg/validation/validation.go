package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxCaptionRunes      = 500
	MaxDescriptionBytes  = 64 * 1024
	MaxSubjectLength     = 64
	MaxVoiceNameLength   = 100
	minSubjectLength     = 1
	controlCharAllowList = "\n\t"
)

// SubjectRegex matches token subjects.
var SubjectRegex = regexp.MustCompile(`^[a-zA-Z0-9._@-]+$`)

// ValidateCaptionText checks caption text before translation. Empty text is
// allowed; callers treat it as a no-op.
func ValidateCaptionText(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("caption text is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(text); n > MaxCaptionRunes {
		return fmt.Errorf("caption text is too long (%d characters, max %d)", n, MaxCaptionRunes)
	}
	for _, r := range text {
		if r < 0x20 && !strings.ContainsRune(controlCharAllowList, r) {
			return fmt.Errorf("caption text contains control character %U", r)
		}
	}
	return nil
}

// ValidateDescription bounds the pasted session description. Structural
// checks happen when it is parsed.
func ValidateDescription(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("session description is required")
	}
	if len(text) > MaxDescriptionBytes {
		return fmt.Errorf("session description is too large (%d bytes, max %d)", len(text), MaxDescriptionBytes)
	}
	return nil
}

// ValidateSubject validates the subject of an access token request
func ValidateSubject(subject string) error {
	if err := ValidateStringLength(subject, minSubjectLength, MaxSubjectLength, "subject"); err != nil {
		return err
	}
	if !SubjectRegex.MatchString(subject) {
		return fmt.Errorf("subject contains invalid characters")
	}
	return nil
}

// ValidateVoiceName validates a configured or requested TTS voice name
func ValidateVoiceName(name string) error {
	if len(name) > MaxVoiceNameLength {
		return fmt.Errorf("voice name is too long (max %d characters)", MaxVoiceNameLength)
	}
	return nil
}

// ValidateICEURL accepts stun:, stuns:, turn: and turns: URLs.
func ValidateICEURL(raw string) error {
	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok || rest == "" {
		return fmt.Errorf("invalid ICE server URL %q", raw)
	}
	switch scheme {
	case "stun", "stuns", "turn", "turns":
		return nil
	default:
		return fmt.Errorf("unsupported ICE server scheme %q", scheme)
	}
}

// ValidateNonEmptyString validates that string is not empty
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length in runes
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
