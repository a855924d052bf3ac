package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestGenerateUserName(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		prefix string
	}{
		{"first word upper-cased", "alice smith", "#ALICE-"},
		{"long word truncated", "Bartholomew Jones", "#BARTHO-"},
		{"multi-byte letter at the cut", "Abcdeé x", "#ABCDEÉ-"},
		{"accented word", "Émilienne", "#ÉMILIE-"},
		{"dash dropped", "Jean-Luc Picard", "#JEANLU-"},
		{"empty name", "   ", "#USER-"},
		{"dashes only", "--- x", "#USER-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateUserName(tt.input)
			if !utf8.ValidString(got) {
				t.Fatalf("GenerateUserName(%q) = %q is not valid UTF-8", tt.input, got)
			}
			if !strings.HasPrefix(got, tt.prefix) {
				t.Fatalf("GenerateUserName(%q) = %q, want prefix %q", tt.input, got, tt.prefix)
			}
			if !ValidateUserName(got) {
				t.Fatalf("GenerateUserName(%q) = %q fails ValidateUserName", tt.input, got)
			}
		})
	}
}

func TestValidateUserName(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"#ALICE-123", true},
		{"#ÉMILIE-456", true},
		{"ALICE-123", false},
		{"#ALICE123", false},
		{"#-123", false},
		{"#ALICE-", false},
		{"#A-B-1", false},
		{"#A", false},
	}
	for _, tt := range tests {
		if got := ValidateUserName(tt.input); got != tt.want {
			t.Errorf("ValidateUserName(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if !IsValidID(a) || !IsValidID(b) {
		t.Fatalf("expected valid ids, got %q and %q", a, b)
	}
	if a >= b {
		t.Fatalf("expected ids in creation order, got %q then %q", a, b)
	}
	if IsValidID("not-an-id") {
		t.Fatal("expected a malformed id to be rejected")
	}
}
