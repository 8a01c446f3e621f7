package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/vuongmanhnghia/guild-player/internal/errors"
)

// MaxQueryLength bounds /play input
const MaxQueryLength = 500

// ValidateQuery checks a /play query and returns it sanitized
func ValidateQuery(input string) (string, error) {
	query := SanitizeInput(input)

	if query == "" {
		return "", fmt.Errorf("%w: query cannot be empty", errors.ErrInvalidInput)
	}

	if utf8.RuneCountInString(query) > MaxQueryLength {
		return "", fmt.Errorf("%w: query too long (max %d characters)", errors.ErrInvalidInput, MaxQueryLength)
	}

	if strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://") {
		if _, err := url.ParseRequestURI(query); err != nil {
			return "", fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
		}
	}

	return query, nil
}

// ValidatePage clamps a 0-indexed page number into range
func ValidatePage(page, totalPages int) int {
	if totalPages <= 0 || page < 0 {
		return 0
	}
	if page >= totalPages {
		return totalPages - 1
	}
	return page
}

// SanitizeInput sanitizes user input by removing potentially dangerous characters
func SanitizeInput(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Trim whitespace
	input = strings.TrimSpace(input)

	return input
}

// TruncateString truncates to maxLen runes, preferring a word boundary
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	if maxLen > 3 {
		cut := string(runes[:maxLen-3])
		if idx := strings.LastIndexAny(cut, " \t\n"); idx > 0 {
			cut = cut[:idx]
		}
		return cut + "..."
	}

	return string(runes[:maxLen])
}
