package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{StateUnmatched, "unmatched", false},
		{StateMatched, "matched", false},
		{StatePiped, "piped", false},
		{StateResponded, "responded", true},
		{StateNotFound, "not_found", true},
		{StateMethodNotAllowed, "method_not_allowed", true},
		{State(42), "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
			assert.Equal(t, tt.terminal, tt.state.Terminal())
		})
	}
}
