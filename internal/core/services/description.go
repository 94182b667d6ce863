package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"manualcall/internal/core/domain"
)

// ParseSessionDescription decodes a pasted description. Every failure wraps
// domain.ErrInvalidDescription.
func ParseSessionDescription(text string) (domain.SessionDescription, error) {
	var desc domain.SessionDescription

	text = strings.TrimSpace(text)
	if text == "" {
		return desc, fmt.Errorf("%w: empty input", domain.ErrInvalidDescription)
	}
	if err := json.Unmarshal([]byte(text), &desc); err != nil {
		return desc, fmt.Errorf("%w: %v", domain.ErrInvalidDescription, err)
	}

	switch desc.Type {
	case domain.SDPTypeOffer, domain.SDPTypeAnswer, domain.SDPTypePranswer:
		if strings.TrimSpace(desc.SDP) == "" {
			return desc, fmt.Errorf("%w: missing sdp", domain.ErrInvalidDescription)
		}
	case domain.SDPTypeRollback:
	default:
		return desc, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidDescription, desc.Type)
	}
	return desc, nil
}

// ExportSessionDescription renders desc as the text a user copies to the other peer.
func ExportSessionDescription(desc domain.SessionDescription) (string, error) {
	data, err := json.Marshal(desc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
