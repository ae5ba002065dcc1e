package errors

import (
	"strings"
	"unicode"
)

// ValidateIdentifier validates a logical module identifier for safety and
// correctness before it is mapped to a filesystem path. It rejects names
// that could be used for path traversal.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, backslash)
//   - No separators (the identifier uses dots, not slashes)
//   - Maximum length of 256 characters
func ValidateIdentifier(name string) error {
	if name == "" {
		return New(ErrCodeInvalidIdentifier, "module identifier cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidIdentifier, "module identifier too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidIdentifier, "module identifier contains control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory once mapped to a path
		"/",    // Identifier must use dots, not slashes
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidIdentifier, "module identifier contains invalid sequence: %q", pattern)
		}
	}

	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return New(ErrCodeInvalidIdentifier, "module identifier cannot start or end with a dot")
	}

	return nil
}
