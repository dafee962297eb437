package domain

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInstructionSize is 4KB (conservative default)
	DefaultMaxInstructionSize = 4096
	// EnvMaxInstructionSize is the environment variable to override the default
	EnvMaxInstructionSize = "UNIBASE_MAX_INSTRUCTION_SIZE"
)

// SanitizeInstruction cleans a user instruction by enforcing the size limit,
// validating UTF-8 and stripping control characters other than newline, tab
// and carriage return. A limit <= 0 uses MaxInstructionSize().
func SanitizeInstruction(input string, limit int) (string, error) {
	if limit <= 0 {
		limit = MaxInstructionSize()
	}
	if len(input) > limit {
		// Reject rather than truncate: a truncated instruction means something else.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInstructionTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !isSafeControl(r) {
			return -1
		}
		return r
	}, input)

	if strings.TrimSpace(clean) == "" {
		return "", ErrEmptyInstruction
	}
	return clean, nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// MaxInstructionSize returns the configured limit, honoring the environment
// override.
func MaxInstructionSize() int {
	if val := os.Getenv(EnvMaxInstructionSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInstructionSize
}
