package errors

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, 0, GetExitCode(nil))
	assert.Equal(t, 1, GetExitCode(errors.New("plain")))
	assert.Equal(t, 42, GetExitCode(WithExitCode(errors.New("coded"), 42)))

	// The code survives further wrapping.
	wrapped := fmt.Errorf("outer: %w", WithExitCode(errors.New("inner"), 7))
	assert.Equal(t, 7, GetExitCode(wrapped))
}

func TestWithExitCodeNil(t *testing.T) {
	assert.NoError(t, WithExitCode(nil, 3))
}

func TestClassifyExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"not found", fmt.Errorf("load: %w", ErrCredentialNotFound), ExitCodeCredentialNotFound},
		{"unreadable", fmt.Errorf("load: %w", ErrCredentialUnreadable), ExitCodeCredentialUnreadable},
		{"malformed", fmt.Errorf("load: %w", ErrCredentialMalformed), ExitCodeCredentialMalformed},
		{"incomplete", fmt.Errorf("load: %w", ErrCredentialIncomplete), ExitCodeCredentialIncomplete},
		{"rejected", fmt.Errorf("auth: %w", ErrAuthRejected), ExitCodeAuthRejected},
		{"unavailable", fmt.Errorf("auth: %w", ErrAuthUnavailable), ExitCodeAuthUnavailable},
		{"unknown", errors.New("something else"), ExitCodeGeneric},
		{"unknown with attached code", WithExitCode(errors.New("boom"), 33), 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyExitCode(tt.err))
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrCredentialNotFound,
		ErrCredentialUnreadable,
		ErrCredentialMalformed,
		ErrCredentialIncomplete,
		ErrAuthRejected,
		ErrAuthUnavailable,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}
