package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// UserIDRegex validates user ID format
	UserIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateUserID validates the identity a connection presents. The literal
// "undefined" is what a client sends when its auth state never resolved.
func ValidateUserID(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if userID == "undefined" {
		return fmt.Errorf("user id is unresolved")
	}
	if len(userID) > 100 {
		return fmt.Errorf("user id is too long (max 100 characters)")
	}
	if !UserIDRegex.MatchString(userID) {
		return fmt.Errorf("user id contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateCallType validates the requested call media kind.
func ValidateCallType(callType string) error {
	switch callType {
	case "audio", "video":
		return nil
	case "":
		return fmt.Errorf("call type is required")
	default:
		return fmt.Errorf("unsupported call type %q", callType)
	}
}

// ValidateEventName rejects empty or oversized event names before dispatch.
func ValidateEventName(event string) error {
	if event == "" {
		return fmt.Errorf("event name is required")
	}
	if len(event) > 64 {
		return fmt.Errorf("event name is too long (max 64 characters)")
	}
	return nil
}
