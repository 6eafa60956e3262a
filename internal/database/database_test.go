package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-guildevents/internal/models"
)

const guildID = models.Snowflake(81384788765712384)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func newEvent(id models.Snowflake, start time.Time) *models.ScheduledEvent {
	guild := &models.Guild{ID: guildID}
	return models.NewScheduledEvent(id, guild).
		SetName("Town hall").
		SetDescription("Monthly sync").
		SetStartTime(start).
		SetStatus(models.StatusScheduled).
		SetCreatorID(42).
		SetVoiceChannel(&models.VoiceChannel{ID: 2000, GuildID: guildID})
}

func TestDatabase_SaveAndLoad(t *testing.T) {
	d := openTestDB(t)
	start := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

	late := newEvent(30, start.Add(time.Hour))
	early := newEvent(20, start).
		SetEndTime(start.Add(2 * time.Hour)).
		SetInterestedUserCount(9)

	require.NoError(t, d.SaveEvent(late))
	require.NoError(t, d.SaveEvent(early))

	records, err := d.LoadGuildEvents(guildID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, "20", r.EventID)
	assert.Equal(t, "Town hall", r.Name)
	assert.Equal(t, start.UnixMilli(), r.StartTime)
	assert.Equal(t, start.Add(2*time.Hour).UnixMilli(), r.EndTime)
	assert.Equal(t, models.StatusScheduled.Key(), r.Status)
	assert.Equal(t, models.TypeVoice.Key(), r.EntityType)
	assert.Equal(t, "2000", r.ChannelID)
	assert.Equal(t, "42", r.CreatorID)
	assert.Equal(t, 9, r.Interested)
	assert.Equal(t, models.UnknownInterestedCount, records[1].Interested)

	t.Run("archived_payloads", func(t *testing.T) {
		payloads, err := d.ArchivedEvents(guildID)
		require.NoError(t, err)
		require.Len(t, payloads, 2)
		assert.Equal(t, "20", payloads[0].ID)
		require.NotNil(t, payloads[0].UserCount)
		assert.Equal(t, 9, *payloads[0].UserCount)
		assert.Nil(t, payloads[1].UserCount)
	})

	t.Run("save_replaces", func(t *testing.T) {
		early.SetName("Renamed")
		require.NoError(t, d.SaveEvent(early))
		records, err := d.LoadGuildEvents(guildID)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Renamed", records[0].Name)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, d.DeleteEvent(guildID, 30))
		records, err := d.LoadGuildEvents(guildID)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestEventRecord_Payload(t *testing.T) {
	start := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	ev := newEvent(20, start).SetExternalLocation("Main hall").SetInterestedUserCount(3)

	restored, err := models.NewFromPayload(RecordFromEvent(ev).Payload(), nil)
	require.NoError(t, err)

	assert.True(t, restored.Equal(ev))
	assert.Equal(t, "Town hall", restored.Name())
	assert.True(t, restored.StartTime().Equal(start))
	assert.Equal(t, models.TypeExternal, restored.Type())
	place, ok := restored.ExternalLocation()
	assert.True(t, ok)
	assert.Equal(t, "Main hall", place)
	assert.Equal(t, 3, restored.InterestedUserCount())
	_, hasEnd := restored.EndTime()
	assert.False(t, hasEnd)
}

func TestDatabase_Changes(t *testing.T) {
	d := openTestDB(t)
	start := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

	prev := newEvent(20, start)
	before := prev.Snapshot()
	prev.SetName("Renamed").SetStatus(models.StatusActive).SetEndTime(start.Add(time.Hour))
	changes := models.Diff(before, prev.Snapshot())
	require.Len(t, changes, 3)

	require.NoError(t, d.RecordChanges(guildID, 20, changes))
	require.NoError(t, d.RecordChanges(guildID, 20, nil))

	got, err := d.RecentChanges(guildID, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// newest first; same timestamp falls back to insertion order, reversed
	assert.Equal(t, models.FieldStatus, got[0].Field)
	assert.Equal(t, "SCHEDULED", got[0].OldValue)
	assert.Equal(t, "ACTIVE", got[0].NewValue)
	assert.Equal(t, models.FieldEndTime, got[1].Field)
	assert.Equal(t, "", got[1].OldValue)
	assert.Equal(t, "2024-06-01T19:00:00Z", got[1].NewValue)
	assert.Equal(t, models.FieldName, got[2].Field)

	limited, err := d.RecentChanges(guildID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDatabase_GuildConfig(t *testing.T) {
	d := openTestDB(t)

	cfg, err := d.GetGuildConfig("1")
	require.NoError(t, err)
	assert.Empty(t, cfg.LogChannelID)

	cfg.LogChannelID = "555"
	require.NoError(t, d.UpsertGuildConfig(cfg))

	cfg, err = d.GetGuildConfig("1")
	require.NoError(t, err)
	assert.Equal(t, "555", cfg.LogChannelID)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "x", FormatValue("x"))
	assert.Equal(t, "CANCELED", FormatValue(models.StatusCanceled))
	assert.Equal(t, "EXTERNAL:Park", FormatValue(models.ExternalLocation{Place: "Park"}))
	assert.Equal(t, "7", FormatValue(7))
}

func TestGlobalDatabase(t *testing.T) {
	require.NoError(t, Initialize(filepath.Join(t.TempDir(), "global.db")))
	t.Cleanup(func() { globalDB = nil })

	assert.True(t, IsConnected())
	require.NotNil(t, GetDB())

	require.NoError(t, Close())
	assert.False(t, IsConnected())
	assert.Nil(t, GetDB())
}
