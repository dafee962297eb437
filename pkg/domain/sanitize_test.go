package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInstruction_SizeLimit(t *testing.T) {
	limit := 4096

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeInstruction(strings.Repeat("a", tt.inputSize), 0)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInstructionTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeInstruction_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "add a red cube", "add a red cube"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
		{"Bell", "Ding\x07", "Ding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInstruction(tt.input, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSanitizeInstruction_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxInstructionSize, "10")

	_, err := SanitizeInstruction("12345678901", 0)
	assert.Error(t, err)

	_, err = SanitizeInstruction("12345", 0)
	assert.NoError(t, err)

	_, err = SanitizeInstruction("12345678901", 100)
	assert.NoError(t, err, "an explicit limit wins over the environment")
}

func TestSanitizeInstruction_Rejects(t *testing.T) {
	_, err := SanitizeInstruction("\xbd\xb2\x3d\xbc\x20\xe2\x8c\x98", 0)
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	_, err = SanitizeInstruction(" \x00\n", 0)
	assert.ErrorIs(t, err, ErrEmptyInstruction)
}
