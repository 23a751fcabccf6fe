package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(10)

	for i := 0; i < 10; i++ {
		err := q.Check("op-1")
		assert.NoError(t, err, "step %d should be allowed", i+1)
	}

	assert.Equal(t, 10, q.Current())
	assert.Equal(t, 10, q.MaxSteps())
}

func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(5)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Check("op-1"))
	}

	err := q.Check("op-1")
	require.Error(t, err)

	var stepsErr *StepsExceededError
	require.ErrorAs(t, err, &stepsErr)
	assert.Equal(t, "op-1", stepsErr.Token)
	assert.Equal(t, 6, stepsErr.Steps)
	assert.Equal(t, 5, stepsErr.Limit)
}

func TestQuotaEnforcer_ZeroLimit(t *testing.T) {
	q := NewQuotaEnforcer(0)
	assert.Error(t, q.Check("op-1"), "zero limit rejects the first step")
}

func TestStepsExceededError_Error(t *testing.T) {
	err := &StepsExceededError{Token: "op-9", Steps: 11, Limit: 10}
	assert.Equal(t, "operation op-9 exceeded max steps quota: 11 steps > 10 limit", err.Error())
}

func TestIsStepsExceededError(t *testing.T) {
	err := &StepsExceededError{Token: "op-1", Steps: 2, Limit: 1}
	assert.True(t, IsStepsExceededError(err))
	assert.True(t, IsStepsExceededError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsStepsExceededError(fmt.Errorf("other")))
	assert.True(t, IsQuotaError(err))
}
