package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a time-ordered identifier (UUIDv7), so sorting ids
// lexically follows creation order.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IsValidID reports whether s is a canonical identifier produced by NewID.
func IsValidID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// GenerateUserName generates a handle in format #WORD-123
func GenerateUserName(name string) string {
	// Take first word of name and capitalize
	prefix := "USER"
	if words := strings.Fields(name); len(words) > 0 {
		if w := strings.ReplaceAll(strings.ToUpper(words[0]), "-", ""); w != "" {
			prefix = w
		}
	}
	// truncate by rune so multi-byte letters stay valid UTF-8
	if r := []rune(prefix); len(r) > 6 {
		prefix = string(r[:6])
	}

	number := rand.Intn(900) + 100 // 100-999

	return fmt.Sprintf("#%s-%d", prefix, number)
}

// ValidateUserName validates the format of a generated handle
func ValidateUserName(userName string) bool {
	// Should start with # and contain a dash
	if len(userName) < 5 || userName[0] != '#' {
		return false
	}

	parts := strings.Split(userName[1:], "-")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
