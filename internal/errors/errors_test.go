package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "backend unavailable", err: fmt.Errorf("%w: refused", ErrBackendUnavailable), want: true},
		{name: "unknown", err: errors.New("boom"), want: true},
		{name: "unauthorized", err: fmt.Errorf("%w: 401", ErrUnauthorized), want: false},
		{name: "bad request", err: ErrBadRequest, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Retryable(tc.err))
		})
	}
}
