package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_DispatchesInOrder(t *testing.T) {
	s, err := NewSession("token")
	require.NoError(t, err)

	assert.True(t, s.discord.SyncEvents)
	assert.True(t, s.discord.StateEnabled)
	assert.Equal(t, Intents, s.discord.Identify.Intents)
}
