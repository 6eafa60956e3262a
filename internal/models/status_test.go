package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFromKey(t *testing.T) {
	for _, s := range statuses {
		assert.Equal(t, s, StatusFromKey(s.Key()), s.String())
	}

	for _, key := range []int{0, 5, 99, -2, 1 << 30} {
		assert.Equal(t, StatusUnknown, StatusFromKey(key), "key %d", key)
	}
}

func TestTypeFromKey(t *testing.T) {
	for _, ty := range types {
		assert.Equal(t, ty, TypeFromKey(ty.Key()), ty.String())
	}

	for _, key := range []int{0, 4, 100, -7} {
		assert.Equal(t, TypeUnknown, TypeFromKey(key), "key %d", key)
	}
}

func TestStatus_Transitions(t *testing.T) {
	allowed := map[Status][]Status{
		StatusScheduled: {StatusActive, StatusCanceled},
		StatusActive:    {StatusCompleted, StatusCanceled},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
}
