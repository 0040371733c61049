package subsystem

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onflow/relay-node/model/relay"
)

func TestFailureError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := fmt.Errorf("node halted: %w", NewFailureError(relay.CandidateBacking, inner))

	assert.True(t, IsFailureError(err))
	assert.ErrorIs(t, err, inner)

	var failure *FailureError
	if assert.ErrorAs(t, err, &failure) {
		assert.Equal(t, relay.CandidateBacking, failure.Kind)
	}
	assert.Contains(t, err.Error(), "candidate-backing")

	assert.False(t, IsFailureError(inner))
}
