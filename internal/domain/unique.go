package domain

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"stockroom/internal/core/id"
)

// maxSuffixAttempts bounds the search for a free "-N" suffix.
const maxSuffixAttempts = 10_000

// KeyExists reports whether value is already taken by another record.
type KeyExists func(ctx context.Context, value string, excludeID *id.ID) (bool, error)

// ResolveUnique returns base if it is free, otherwise the first free
// value of base-1, base-2, ...
func ResolveUnique(ctx context.Context, base string, excludeID *id.ID, exists KeyExists) (string, error) {
	candidate := base
	for n := 1; n <= maxSuffixAttempts; n++ {
		taken, err := exists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("check %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("no free value for %q after %d attempts", base, maxSuffixAttempts)
}

// CodeFromName upper-cases name, keeps letters and digits, and cuts or
// right-pads the result with '0' to exactly width characters.
func CodeFromName(name string, width int) string {
	code := Alphanumeric(strings.ToUpper(name))
	runes := []rune(code)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return code + strings.Repeat("0", width-len(runes))
}

// Alphanumeric drops everything except ASCII letters and digits.
func Alphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Slugify lower-cases s and joins its alphanumeric runs with '-'.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	return b.String()
}
