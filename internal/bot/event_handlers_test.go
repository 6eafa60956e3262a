package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-guildevents/internal/cache"
	"go-guildevents/internal/metrics"
	"go-guildevents/internal/models"
)

type sinkCall struct {
	kind    string
	eventID models.Snowflake
	changes []models.FieldChange
	delta   int
}

type recordingSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (s *recordingSink) add(c sinkCall) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

func (s *recordingSink) EventCreated(ev *models.ScheduledEvent) {
	s.add(sinkCall{kind: "created", eventID: ev.ID()})
}

func (s *recordingSink) EventLoaded(ev *models.ScheduledEvent) {
	s.add(sinkCall{kind: "loaded", eventID: ev.ID()})
}

func (s *recordingSink) EventUpdated(ev *models.ScheduledEvent, changes []models.FieldChange) {
	s.add(sinkCall{kind: "updated", eventID: ev.ID(), changes: changes})
}

func (s *recordingSink) EventDeleted(ev *models.ScheduledEvent) {
	s.add(sinkCall{kind: "deleted", eventID: ev.ID()})
}

func (s *recordingSink) InterestChanged(ev *models.ScheduledEvent, _ models.Snowflake, delta int) {
	s.add(sinkCall{kind: "interest", eventID: ev.ID(), delta: delta})
}

func (s *recordingSink) GuildRemoved(_ models.Snowflake, dropped []*models.ScheduledEvent) {
	s.add(sinkCall{kind: "guild_removed", delta: len(dropped)})
}

func (s *recordingSink) snapshot() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkCall(nil), s.calls...)
}

const (
	testGuildID = "81384788765712384"
	testVoiceID = "2000"
)

var testStart = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

func wireEvent(id, name string) *discordgo.GuildScheduledEvent {
	return &discordgo.GuildScheduledEvent{
		ID:                 id,
		GuildID:            testGuildID,
		Name:               name,
		ScheduledStartTime: testStart,
		Status:             discordgo.GuildScheduledEventStatusScheduled,
		EntityType:         discordgo.GuildScheduledEventEntityTypeVoice,
		ChannelID:          testVoiceID,
	}
}

func newTestHandlers(t *testing.T) (*Handlers, *cache.Store, *recordingSink) {
	t.Helper()
	store := cache.NewStore()
	sink := &recordingSink{}
	h := NewHandlers(store, sink, metrics.NewRegistry())

	h.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{
		ID:   testGuildID,
		Name: "Test",
		Channels: []*discordgo.Channel{
			{ID: testVoiceID, GuildID: testGuildID, Type: discordgo.ChannelTypeGuildVoice, Name: "voice"},
		},
	}})
	return h, store, sink
}

func TestHandlers_Lifecycle(t *testing.T) {
	h, store, sink := newTestHandlers(t)
	guildID := models.Snowflake(81384788765712384)

	h.onScheduledEventCreate(nil, &discordgo.GuildScheduledEventCreate{GuildScheduledEvent: wireEvent("10", "Town hall")})
	ev := store.ScheduledEvent(guildID, 10)
	require.NotNil(t, ev)
	assert.Equal(t, models.TypeVoice, ev.Type())
	assert.NotNil(t, ev.VoiceChannel())

	renamed := wireEvent("10", "Town hall v2")
	h.onScheduledEventUpdate(nil, &discordgo.GuildScheduledEventUpdate{GuildScheduledEvent: renamed})
	assert.Same(t, ev, store.ScheduledEvent(guildID, 10))
	assert.Equal(t, "Town hall v2", ev.Name())

	// identical update produces no sink call
	h.onScheduledEventUpdate(nil, &discordgo.GuildScheduledEventUpdate{GuildScheduledEvent: renamed})

	h.onScheduledEventDelete(nil, &discordgo.GuildScheduledEventDelete{GuildScheduledEvent: renamed})
	assert.Nil(t, store.ScheduledEvent(guildID, 10))

	calls := sink.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, "created", calls[0].kind)
	assert.Equal(t, "updated", calls[1].kind)
	require.Len(t, calls[1].changes, 1)
	assert.Equal(t, models.FieldName, calls[1].changes[0].Identifier)
	assert.Equal(t, "deleted", calls[2].kind)
}

func TestHandlers_DeleteUncached(t *testing.T) {
	h, _, sink := newTestHandlers(t)

	h.onScheduledEventDelete(nil, &discordgo.GuildScheduledEventDelete{GuildScheduledEvent: wireEvent("77", "Ghost")})

	calls := sink.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "deleted", calls[0].kind)
	assert.Equal(t, models.Snowflake(77), calls[0].eventID)
}

func TestHandlers_Interest(t *testing.T) {
	h, store, sink := newTestHandlers(t)
	guildID := models.Snowflake(81384788765712384)

	h.onScheduledEventCreate(nil, &discordgo.GuildScheduledEventCreate{GuildScheduledEvent: wireEvent("10", "e")})
	store.ScheduledEvent(guildID, 10).SetInterestedUserCount(2)

	h.onScheduledEventUserAdd(nil, &discordgo.GuildScheduledEventUserAdd{
		GuildScheduledEventID: "10", UserID: "5", GuildID: testGuildID,
	})
	h.onScheduledEventUserRemove(nil, &discordgo.GuildScheduledEventUserRemove{
		GuildScheduledEventID: "10", UserID: "6", GuildID: testGuildID,
	})
	h.onScheduledEventUserAdd(nil, &discordgo.GuildScheduledEventUserAdd{
		GuildScheduledEventID: "404", UserID: "5", GuildID: testGuildID,
	})

	assert.Equal(t, 2, store.ScheduledEvent(guildID, 10).InterestedUserCount())
	calls := sink.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, 1, calls[1].delta)
	assert.Equal(t, -1, calls[2].delta)
}

func TestHandlers_GuildDelete(t *testing.T) {
	h, store, sink := newTestHandlers(t)
	h.onScheduledEventCreate(nil, &discordgo.GuildScheduledEventCreate{GuildScheduledEvent: wireEvent("10", "e")})

	h.onGuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: testGuildID, Unavailable: true}})
	assert.Equal(t, 1, store.EventCount())

	h.onGuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: testGuildID}})
	assert.Equal(t, 0, store.EventCount())

	calls := sink.snapshot()
	require.NotEmpty(t, calls)
	last := calls[len(calls)-1]
	assert.Equal(t, "guild_removed", last.kind)
	assert.Equal(t, 1, last.delta)
}

func TestHandlers_Channels(t *testing.T) {
	h, store, _ := newTestHandlers(t)

	h.onChannelCreate(nil, &discordgo.ChannelCreate{Channel: &discordgo.Channel{
		ID: "3000", GuildID: testGuildID, Type: discordgo.ChannelTypeGuildStageVoice,
	}})
	assert.NotNil(t, store.StageChannel(3000))

	h.onChannelDelete(nil, &discordgo.ChannelDelete{Channel: &discordgo.Channel{ID: "3000", GuildID: testGuildID}})
	assert.Nil(t, store.StageChannel(3000))
}

type stubLister struct {
	payloads []*models.Payload
	err      error
	done     chan struct{}
}

func (l *stubLister) ListScheduledEvents(context.Context, models.Snowflake) ([]*models.Payload, error) {
	defer close(l.done)
	return l.payloads, l.err
}

func TestHandlers_LoadOnGuildCreate(t *testing.T) {
	count := 12
	lister := &stubLister{
		payloads: []*models.Payload{{GuildScheduledEvent: wireEvent("10", "Loaded"), UserCount: &count}},
		done:     make(chan struct{}),
	}
	store := cache.NewStore()
	sink := &recordingSink{}
	h := NewHandlers(store, sink, nil).WithLister(lister)

	h.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: testGuildID}})
	<-lister.done

	require.Eventually(t, func() bool {
		return store.ScheduledEvent(81384788765712384, 10) != nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 12, store.ScheduledEvent(81384788765712384, 10).InterestedUserCount())
	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []sinkCall{{kind: "loaded", eventID: 10}}, sink.snapshot(), "existing events are not announced as created")

	t.Run("cached_event_reports_only_changes", func(t *testing.T) {
		store := cache.NewStore()
		_, err := store.SeedGuild(&discordgo.Guild{
			ID: testGuildID,
			Channels: []*discordgo.Channel{
				{ID: testVoiceID, GuildID: testGuildID, Type: discordgo.ChannelTypeGuildVoice, Name: "voice"},
			},
		})
		require.NoError(t, err)
		_, _, _, err = store.UpsertScheduledEvent(&models.Payload{GuildScheduledEvent: wireEvent("10", "Old name")})
		require.NoError(t, err)
		_, _, _, err = store.UpsertScheduledEvent(&models.Payload{GuildScheduledEvent: wireEvent("11", "Same")})
		require.NoError(t, err)

		lister := &stubLister{
			payloads: []*models.Payload{
				{GuildScheduledEvent: wireEvent("10", "New name")},
				{GuildScheduledEvent: wireEvent("11", "Same")},
			},
			done: make(chan struct{}),
		}
		sink := &recordingSink{}
		h := NewHandlers(store, sink, nil).WithLister(lister)

		h.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: testGuildID}})
		<-lister.done

		require.Eventually(t, func() bool { return len(sink.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
		calls := sink.snapshot()
		assert.Equal(t, "updated", calls[0].kind)
		require.Len(t, calls[0].changes, 1)
		assert.Equal(t, models.FieldName, calls[0].changes[0].Identifier)
		assert.Equal(t, sinkCall{kind: "loaded", eventID: 11}, calls[1])
	})

	t.Run("lister_error", func(t *testing.T) {
		failing := &stubLister{err: errors.New("boom"), done: make(chan struct{})}
		h := NewHandlers(cache.NewStore(), nil, nil).WithLister(failing)
		h.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: testGuildID}})
		<-failing.done
	})
}

type stubArchive struct {
	payloads []*models.Payload
	calls    chan models.Snowflake
}

func (a *stubArchive) ArchivedEvents(guildID models.Snowflake) ([]*models.Payload, error) {
	a.calls <- guildID
	return a.payloads, nil
}

func TestHandlers_ArchiveFallback(t *testing.T) {
	archive := &stubArchive{
		payloads: []*models.Payload{
			{GuildScheduledEvent: wireEvent("10", "Archived")},
			{GuildScheduledEvent: wireEvent("11", "Stale")},
		},
		calls: make(chan models.Snowflake, 1),
	}
	failing := &stubLister{err: errors.New("boom"), done: make(chan struct{})}
	store := cache.NewStore()
	sink := &recordingSink{}
	h := NewHandlers(store, sink, nil).WithLister(failing).WithArchive(archive)

	_, err := store.SeedGuild(&discordgo.Guild{
		ID: testGuildID,
		Channels: []*discordgo.Channel{
			{ID: testVoiceID, GuildID: testGuildID, Type: discordgo.ChannelTypeGuildVoice, Name: "voice"},
		},
	})
	require.NoError(t, err)
	_, _, _, err = store.UpsertScheduledEvent(&models.Payload{GuildScheduledEvent: wireEvent("11", "Live")})
	require.NoError(t, err)

	h.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: testGuildID}})
	<-failing.done
	assert.Equal(t, models.Snowflake(81384788765712384), <-archive.calls)

	require.Eventually(t, func() bool {
		return store.ScheduledEvent(81384788765712384, 10) != nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Live", store.ScheduledEvent(81384788765712384, 11).Name())
	assert.Empty(t, sink.snapshot(), "restored events are not announced")
}
