package errorcodes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "plain error", err: errors.New("boom"), want: ExitFailure},
		{name: "timeout sentinel", err: ErrToolTimeout, want: ExitTimeout},
		{
			name: "wrapped not available",
			err:  fmt.Errorf("colcon: %w", ErrToolNotAvailable),
			want: ExitToolNotFound,
		},
		{name: "explicit exit", err: Exit(3), want: 3},
		{name: "interrupted", err: ErrInterrupted, want: ExitInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestExit(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Exit(ExitSuccess))

	err := Exit(2)
	assert.EqualError(t, err, "exit status 2")
}

func TestWrappedSentinelsMatch(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("plugin %q: %w", "missing", ErrPluginNotFound)
	assert.ErrorIs(t, err, ErrPluginNotFound)
	assert.NotErrorIs(t, err, ErrPluginUnavailable)
}
