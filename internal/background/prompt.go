package background

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPromptLength = 1
	MaxPromptLength = 500

	promptSuffix = ", high quality, detailed, background, 4k, cinematic lighting"
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePrompt checks the trimmed prompt length and rejects control characters.
func ValidatePrompt(prompt string) error {
	trimmed := strings.TrimSpace(prompt)
	n := utf8.RuneCountInString(trimmed)
	if n < MinPromptLength {
		return &ValidationError{Field: "prompt", Message: "prompt cannot be empty"}
	}
	if n > MaxPromptLength {
		return &ValidationError{Field: "prompt", Message: fmt.Sprintf("prompt must be no more than %d characters", MaxPromptLength)}
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return &ValidationError{Field: "prompt", Message: "prompt contains invalid characters"}
		}
	}
	return nil
}

// NormalizePrompt trims, lowercases and collapses runs of whitespace.
func NormalizePrompt(prompt string) string {
	return strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
}

// HashPrompt is the hex sha256 of the normalized prompt, so prompts differing
// only in case or spacing share a hash.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(NormalizePrompt(prompt)))
	return hex.EncodeToString(sum[:])
}

func decoratePrompt(prompt string) string {
	return strings.TrimSpace(prompt) + promptSuffix
}
