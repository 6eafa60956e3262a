package bot

import (
	"context"
	"time"

	"go-guildevents/internal/logging"
	"go-guildevents/internal/models"
)

type Persister interface {
	SaveEvent(ev *models.ScheduledEvent) error
	DeleteEvent(guildID, eventID models.Snowflake) error
	RecordChanges(guildID, eventID models.Snowflake, changes []models.FieldChange) error
}

type Mirror interface {
	Put(ctx context.Context, ev *models.ScheduledEvent) error
	Delete(ctx context.Context, guildID, id models.Snowflake) error
	DeleteGuild(ctx context.Context, guildID models.Snowflake) error
}

type Announcer interface {
	EventCreated(ev *models.ScheduledEvent)
	EventUpdated(ev *models.ScheduledEvent, changes []models.FieldChange)
	EventDeleted(ev *models.ScheduledEvent)
}

// Recorder is the production Sink: it logs, persists, mirrors and
// announces every change. Any of the outputs may be nil. Failures are
// logged and never stop the other outputs.
type Recorder struct {
	db        Persister
	mirror    Mirror
	announcer Announcer
	timeout   time.Duration
}

func NewRecorder(db Persister, mirror Mirror, announcer Announcer) *Recorder {
	return &Recorder{
		db:        db,
		mirror:    mirror,
		announcer: announcer,
		timeout:   3 * time.Second,
	}
}

func (r *Recorder) EventCreated(ev *models.ScheduledEvent) {
	logging.LogScheduledEventCreated(ev)
	r.save(ev)
	r.put(ev)
	if r.announcer != nil {
		r.announcer.EventCreated(ev)
	}
}

// EventLoaded stores an event found while loading a guild without
// announcing it.
func (r *Recorder) EventLoaded(ev *models.ScheduledEvent) {
	logging.Debug("[RECORDER] Loaded scheduled event %s in guild %s", ev.ID(), ev.GuildID())
	r.save(ev)
	r.put(ev)
}

func (r *Recorder) EventUpdated(ev *models.ScheduledEvent, changes []models.FieldChange) {
	logging.LogScheduledEventUpdated(ev, changes)
	r.save(ev)
	if r.db != nil {
		if err := r.db.RecordChanges(ev.GuildID(), ev.ID(), changes); err != nil {
			logging.Error("[RECORDER] Failed to record changes for %s: %v", ev.ID(), err)
		}
	}
	r.put(ev)
	if r.announcer != nil {
		r.announcer.EventUpdated(ev, changes)
	}
}

func (r *Recorder) EventDeleted(ev *models.ScheduledEvent) {
	logging.LogScheduledEventDeleted(ev.GuildID(), ev.ID())
	if r.db != nil {
		if err := r.db.DeleteEvent(ev.GuildID(), ev.ID()); err != nil {
			logging.Error("[RECORDER] Failed to delete %s: %v", ev.ID(), err)
		}
	}
	if r.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.mirror.Delete(ctx, ev.GuildID(), ev.ID()); err != nil {
			logging.Warn("[RECORDER] Failed to unmirror %s: %v", ev.ID(), err)
		}
	}
	if r.announcer != nil {
		r.announcer.EventDeleted(ev)
	}
}

// InterestChanged only refreshes the stored count; it is not announced.
func (r *Recorder) InterestChanged(ev *models.ScheduledEvent, userID models.Snowflake, delta int) {
	if ev == nil {
		return
	}
	logging.LogInterestChanged(ev.GuildID(), ev.ID(), userID, delta)
	if ev.InterestedUserCount() == models.UnknownInterestedCount {
		return
	}
	r.save(ev)
	r.put(ev)
}

// GuildRemoved drops the guild's mirrored snapshots. Persisted rows and the
// change log are kept for when the bot is re-added.
func (r *Recorder) GuildRemoved(guildID models.Snowflake, dropped []*models.ScheduledEvent) {
	logging.Info("[RECORDER] Guild %s removed with %d events", guildID, len(dropped))
	if r.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.mirror.DeleteGuild(ctx, guildID); err != nil {
		logging.Warn("[RECORDER] Failed to unmirror guild %s: %v", guildID, err)
	}
}

func (r *Recorder) save(ev *models.ScheduledEvent) {
	if r.db == nil {
		return
	}
	if err := r.db.SaveEvent(ev); err != nil {
		logging.Error("[RECORDER] Failed to save %s: %v", ev.ID(), err)
	}
}

func (r *Recorder) put(ev *models.ScheduledEvent) {
	if r.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.mirror.Put(ctx, ev); err != nil {
		logging.Warn("[RECORDER] Failed to mirror %s: %v", ev.ID(), err)
	}
}
