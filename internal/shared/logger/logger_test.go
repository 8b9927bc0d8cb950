package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  zerolog.Level
		known bool
	}{
		{"", zerolog.InfoLevel, true},
		{"  ", zerolog.InfoLevel, true},
		{"DEBUG", zerolog.DebugLevel, true},
		{"warn", zerolog.WarnLevel, true},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		level, known := parseLevel(tt.in)
		assert.Equal(t, tt.want, level, "level for %q", tt.in)
		assert.Equal(t, tt.known, known, "known for %q", tt.in)
	}
}
