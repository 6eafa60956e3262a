package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-guildevents/internal/models"
)

const (
	guildID = models.Snowflake(81384788765712384)
	stageID = models.Snowflake(1000)
	voiceID = models.Snowflake(2000)
)

func payload(t *testing.T, raw string) *models.Payload {
	t.Helper()
	p, err := models.DecodePayload([]byte(raw))
	require.NoError(t, err)
	return p
}

func eventJSON(id int, name, start string, entityType int, channelID string) string {
	return fmt.Sprintf(`{
		"id": "%d",
		"guild_id": "81384788765712384",
		"name": %q,
		"scheduled_start_time": %q,
		"status": 1,
		"entity_type": %d,
		"channel_id": %q
	}`, id, name, start, entityType, channelID)
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	_, err := s.SeedGuild(&discordgo.Guild{
		ID:      guildID.String(),
		Name:    "Test guild",
		OwnerID: "5",
		Channels: []*discordgo.Channel{
			{ID: stageID.String(), Type: discordgo.ChannelTypeGuildStageVoice, Name: "stage"},
			{ID: voiceID.String(), Type: discordgo.ChannelTypeGuildVoice, Name: "voice"},
			{ID: "3000", Type: discordgo.ChannelTypeGuildText, Name: "text"},
		},
	})
	require.NoError(t, err)
	return s
}

func TestStore_SeedGuild(t *testing.T) {
	s := seededStore(t)

	g := s.Guild(guildID)
	require.NotNil(t, g)
	assert.Equal(t, "Test guild", g.Name)
	assert.Equal(t, models.Snowflake(5), g.OwnerID)
	assert.NotNil(t, s.StageChannel(stageID))
	assert.NotNil(t, s.VoiceChannel(voiceID))
	assert.Nil(t, s.StageChannel(3000))
	assert.Nil(t, s.VoiceChannel(3000))

	again, err := s.SeedGuild(&discordgo.Guild{ID: guildID.String(), Name: "Renamed"})
	require.NoError(t, err)
	assert.Same(t, g, again)
	assert.Equal(t, "Renamed", g.Name)
}

func TestStore_UpsertScheduledEvent(t *testing.T) {
	s := seededStore(t)

	ev, changes, created, err := s.UpsertScheduledEvent(payload(t,
		eventJSON(10, "Town hall", "2024-06-01T18:00:00Z", 1, stageID.String())))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, changes)
	assert.Equal(t, models.TypeStageInstance, ev.Type())
	assert.Same(t, s.Guild(guildID), ev.Guild())

	t.Run("update_keeps_pointer", func(t *testing.T) {
		again, changes, created, err := s.UpsertScheduledEvent(payload(t,
			eventJSON(10, "Town hall v2", "2024-06-01T18:00:00Z", 2, voiceID.String())))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Same(t, ev, again)
		assert.Equal(t, "Town hall v2", ev.Name())
		assert.Equal(t, models.TypeVoice, ev.Type())

		var ids []string
		for _, c := range changes {
			ids = append(ids, c.Identifier)
		}
		assert.Equal(t, []string{models.FieldName, models.FieldLocation}, ids)
	})

	t.Run("uncached_channel_is_unknown", func(t *testing.T) {
		ev, _, _, err := s.UpsertScheduledEvent(payload(t,
			eventJSON(11, "Lost", "2024-06-02T18:00:00Z", 1, "999")))
		require.NoError(t, err)
		assert.Equal(t, models.TypeUnknown, ev.Type())
		assert.Nil(t, ev.Location())
	})

	t.Run("nil_payload", func(t *testing.T) {
		_, _, _, err := s.UpsertScheduledEvent(nil)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("uncached_guild_gets_stub", func(t *testing.T) {
		ev, _, created, err := s.UpsertScheduledEvent(payload(t, `{
			"id": "50", "guild_id": "77", "name": "Elsewhere",
			"scheduled_start_time": "2024-06-01T18:00:00Z", "status": 1, "entity_type": 3,
			"entity_metadata": {"location": "Park"}
		}`))
		require.NoError(t, err)
		assert.True(t, created)
		assert.Same(t, ev.Guild(), s.Guild(77))
	})
}

func TestStore_ScheduledEventsSorted(t *testing.T) {
	s := seededStore(t)
	for _, tc := range []struct {
		id    int
		start string
	}{
		{30, "2024-06-03T00:00:00Z"},
		{20, "2024-06-01T00:00:00Z"},
		{10, "2024-06-01T00:00:00Z"},
	} {
		_, _, _, err := s.UpsertScheduledEvent(payload(t, eventJSON(tc.id, "e", tc.start, 2, voiceID.String())))
		require.NoError(t, err)
	}

	list := s.ScheduledEvents(guildID)
	require.Len(t, list, 3)
	assert.Equal(t, models.Snowflake(10), list[0].ID())
	assert.Equal(t, models.Snowflake(20), list[1].ID())
	assert.Equal(t, models.Snowflake(30), list[2].ID())
	assert.Equal(t, 3, s.EventCount())
	assert.Empty(t, s.ScheduledEvents(1))
}

func TestStore_RemoveScheduledEvent(t *testing.T) {
	s := seededStore(t)
	ev, _, _, err := s.UpsertScheduledEvent(payload(t, eventJSON(10, "e", "2024-06-01T00:00:00Z", 2, voiceID.String())))
	require.NoError(t, err)

	assert.Same(t, ev, s.RemoveScheduledEvent(guildID, 10))
	assert.Nil(t, s.RemoveScheduledEvent(guildID, 10))
	assert.Nil(t, s.ScheduledEvent(guildID, 10))
	assert.Equal(t, 0, s.EventCount())
}

func TestStore_RemoveGuild(t *testing.T) {
	s := seededStore(t)
	_, _, _, err := s.UpsertScheduledEvent(payload(t, eventJSON(10, "e", "2024-06-01T00:00:00Z", 2, voiceID.String())))
	require.NoError(t, err)

	dropped := s.RemoveGuild(guildID)
	assert.Len(t, dropped, 1)
	assert.Nil(t, s.Guild(guildID))
	assert.Nil(t, s.VoiceChannel(voiceID))
	assert.Equal(t, 0, s.EventCount())
}

func TestStore_AdjustInterested(t *testing.T) {
	s := seededStore(t)

	_, _, _, err := s.UpsertScheduledEvent(payload(t, eventJSON(10, "e", "2024-06-01T00:00:00Z", 2, voiceID.String())))
	require.NoError(t, err)

	t.Run("unknown_stays_unknown", func(t *testing.T) {
		count, ok := s.AdjustInterested(guildID, 10, 1)
		assert.True(t, ok)
		assert.Equal(t, models.UnknownInterestedCount, count)
	})

	t.Run("known_count_moves", func(t *testing.T) {
		s.ScheduledEvent(guildID, 10).SetInterestedUserCount(1)
		count, _ := s.AdjustInterested(guildID, 10, 1)
		assert.Equal(t, 2, count)
		count, _ = s.AdjustInterested(guildID, 10, -5)
		assert.Equal(t, 0, count)
	})

	t.Run("not_cached", func(t *testing.T) {
		_, ok := s.AdjustInterested(guildID, 99, 1)
		assert.False(t, ok)
	})
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	s := seededStore(t)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _, _ = s.UpsertScheduledEvent(&models.Payload{GuildScheduledEvent: &discordgo.GuildScheduledEvent{
				ID:                 fmt.Sprint(100 + i),
				GuildID:            guildID.String(),
				Name:               "e",
				ScheduledStartTime: start,
			}})
			_ = s.ScheduledEvents(guildID)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, s.EventCount())
}

func TestStore_UpsertWhileListing(t *testing.T) {
	s := seededStore(t)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, _, _, err := s.UpsertScheduledEvent(payload(t, eventJSON(100+i, "e", base.Format(time.RFC3339), 2, voiceID.String())))
		require.NoError(t, err)
	}

	var updates []*models.Payload
	for i := 0; i < 21; i++ {
		start := base.Add(time.Duration(i%7) * time.Hour)
		updates = append(updates, payload(t, eventJSON(100+i%3, "e", start.Format(time.RFC3339), 2, voiceID.String())))
	}

	const rounds = 2000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, _, _, _ = s.UpsertScheduledEvent(updates[i%len(updates)])
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			assert.Len(t, s.ScheduledEvents(guildID), 3)
		}
	}()
	wg.Wait()
}
