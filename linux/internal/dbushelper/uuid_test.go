//go:build linux

package dbushelper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "16-bit UUID",
			input:    "2A19",
			expected: "00002a19-0000-1000-8000-00805f9b34fb",
		},
		{
			name:     "32-bit UUID",
			input:    "00002a19",
			expected: "00002a19-0000-1000-8000-00805f9b34fb",
		},
		{
			name:     "128-bit UUID uppercase",
			input:    "6E400001-B5A3-F393-E0A9-E50E24DCCA9E",
			expected: "6e400001-b5a3-f393-e0a9-e50e24dcca9e",
		},
		{
			name:     "128-bit UUID without dashes",
			input:    "6e400001b5a3f393e0a9e50e24dcca9e",
			expected: "6e400001-b5a3-f393-e0a9-e50e24dcca9e",
		},
		{
			name:     "unparseable input",
			input:    " Not-A-UUID ",
			expected: "not-a-uuid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUUID(tt.input))
		})
	}
}

func TestEqualUUID(t *testing.T) {
	assert.True(t, EqualUUID("2a19", "00002A19-0000-1000-8000-00805F9B34FB"))
	assert.False(t, EqualUUID("2a19", "2a18"))
}
