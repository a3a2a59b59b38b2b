package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{0, "0.0s"},
		{62 * time.Second, "1m 2.0s"},
		{59*time.Minute + 30*time.Second, "59m 30.0s"},
		{time.Hour + 2*time.Minute + 9*time.Second, "1h 2m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "a long...", Truncate("a long description", 9))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "----", Rule(4))
	assert.Empty(t, Rule(0))
}
