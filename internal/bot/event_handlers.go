package bot

import (
	"context"
	"sync"
	"time"

	"go-guildevents/internal/cache"
	"go-guildevents/internal/logging"
	"go-guildevents/internal/metrics"
	"go-guildevents/internal/models"

	"github.com/bwmarrin/discordgo"
)

// Sink receives every cache change the gateway causes. Calls never overlap:
// Handlers serializes them with the cache write that produced them, and the
// session delivers dispatches in order (SyncEvents).
type Sink interface {
	EventCreated(ev *models.ScheduledEvent)
	// EventLoaded reports an event fetched while loading a guild that is
	// new to the cache or did not change. It is not a new change.
	EventLoaded(ev *models.ScheduledEvent)
	EventUpdated(ev *models.ScheduledEvent, changes []models.FieldChange)
	EventDeleted(ev *models.ScheduledEvent)
	InterestChanged(ev *models.ScheduledEvent, userID models.Snowflake, delta int)
	GuildRemoved(guildID models.Snowflake, dropped []*models.ScheduledEvent)
}

// Lister fetches a guild's events over REST. GUILD_CREATE does not carry
// scheduled events, so they are loaded this way when the guild arrives.
type Lister interface {
	ListScheduledEvents(ctx context.Context, guildID models.Snowflake) ([]*models.Payload, error)
}

// Archive returns the last persisted state of a guild's events.
type Archive interface {
	ArchivedEvents(guildID models.Snowflake) ([]*models.Payload, error)
}

// Handlers applies gateway dispatches to the cache.
type Handlers struct {
	// mu pairs each cache write with its sink call; the REST loader runs
	// beside the gateway goroutine.
	mu      sync.Mutex
	store   *cache.Store
	sink    Sink
	metrics *metrics.Registry
	lister  Lister
	archive Archive
	timeout time.Duration
}

func NewHandlers(store *cache.Store, sink Sink, m *metrics.Registry) *Handlers {
	return &Handlers{store: store, sink: sink, metrics: m, timeout: 10 * time.Second}
}

// WithLister enables loading existing events on GUILD_CREATE.
func (h *Handlers) WithLister(l Lister) *Handlers {
	h.lister = l
	return h
}

// WithArchive restores persisted events when the REST listing fails.
func (h *Handlers) WithArchive(a Archive) *Handlers {
	h.archive = a
	return h
}

// SetupEventHandlers registers the scheduled event handlers on the session.
func (s *Session) SetupEventHandlers(h *Handlers) {
	logging.Info("Setting up Discord event handlers...")

	s.discord.AddHandler(h.onReady)
	s.discord.AddHandler(h.onGuildCreate)
	s.discord.AddHandler(h.onGuildDelete)
	s.discord.AddHandler(h.onChannelCreate)
	s.discord.AddHandler(h.onChannelUpdate)
	s.discord.AddHandler(h.onChannelDelete)
	s.discord.AddHandler(h.onScheduledEventCreate)
	s.discord.AddHandler(h.onScheduledEventUpdate)
	s.discord.AddHandler(h.onScheduledEventDelete)
	s.discord.AddHandler(h.onScheduledEventUserAdd)
	s.discord.AddHandler(h.onScheduledEventUserRemove)
}

func (h *Handlers) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	logging.Info("Bot ready! Connected as %s, %d guilds pending", r.User.Username, len(r.Guilds))
}

func (h *Handlers) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil {
		return
	}
	if _, err := h.store.SeedGuild(g.Guild); err != nil {
		logging.Warn("[GATEWAY] Ignoring guild %s: %v", g.ID, err)
		return
	}
	h.metrics.GatewayEvent("guild_create")
	logging.Info("Bot joined/loaded guild: %s (ID: %s)", g.Name, g.ID)

	if h.lister != nil || h.archive != nil {
		go h.loadGuildEvents(g.ID)
	}
}

func (h *Handlers) loadGuildEvents(rawGuildID string) {
	guildID, err := models.ParseSnowflake(rawGuildID)
	if err != nil {
		return
	}

	if h.lister != nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		payloads, err := h.lister.ListScheduledEvents(ctx, guildID)
		cancel()
		if err == nil {
			for _, p := range payloads {
				h.upsertPayload(p, "seed")
			}
			logging.Info("Loaded %d scheduled events for guild %s", len(payloads), rawGuildID)
			return
		}
		logging.Warn("[GATEWAY] Failed to load scheduled events for guild %s: %v", rawGuildID, err)
	}

	if h.archive != nil {
		h.restoreArchived(guildID)
	}
}

// restoreArchived fills the cache from persisted rows. Nothing is sent to
// the sink since these are not new changes.
func (h *Handlers) restoreArchived(guildID models.Snowflake) {
	payloads, err := h.archive.ArchivedEvents(guildID)
	if err != nil {
		logging.Warn("[GATEWAY] Failed to restore archived events for guild %s: %v", guildID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	restored := 0
	for _, p := range payloads {
		// a live dispatch may have arrived first
		if id, err := models.ParseSnowflake(p.ID); err == nil && h.store.ScheduledEvent(guildID, id) != nil {
			continue
		}
		if _, _, _, err := h.store.UpsertScheduledEvent(p); err != nil {
			logging.Warn("[GATEWAY] Skipping archived event %s: %v", p.ID, err)
			continue
		}
		restored++
	}
	h.metrics.SetCachedEvents(h.store.EventCount())
	logging.Info("Restored %d archived scheduled events for guild %s", restored, guildID)
}

func (h *Handlers) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	id, err := models.ParseSnowflake(g.ID)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	dropped := h.store.RemoveGuild(id)
	h.metrics.SetCachedEvents(h.store.EventCount())
	logging.Info("Left guild %s, dropped %d cached events", g.ID, len(dropped))
	if h.sink != nil {
		h.sink.GuildRemoved(id, dropped)
	}
}

func (h *Handlers) onChannelCreate(_ *discordgo.Session, c *discordgo.ChannelCreate) {
	h.putChannel(c.Channel)
}

func (h *Handlers) onChannelUpdate(_ *discordgo.Session, c *discordgo.ChannelUpdate) {
	h.putChannel(c.Channel)
}

func (h *Handlers) onChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	if c.Channel == nil {
		return
	}
	if id, err := models.ParseSnowflake(c.ID); err == nil {
		h.store.RemoveChannel(id)
	}
}

func (h *Handlers) putChannel(ch *discordgo.Channel) {
	if ch == nil || ch.GuildID == "" {
		return
	}
	guildID, err := models.ParseSnowflake(ch.GuildID)
	if err != nil {
		return
	}
	h.store.PutChannel(guildID, ch)
}

func (h *Handlers) onScheduledEventCreate(_ *discordgo.Session, e *discordgo.GuildScheduledEventCreate) {
	h.upsert(e.GuildScheduledEvent, "create")
}

func (h *Handlers) onScheduledEventUpdate(_ *discordgo.Session, e *discordgo.GuildScheduledEventUpdate) {
	h.upsert(e.GuildScheduledEvent, "update")
}

// upsert feeds a gateway payload into the cache. Gateway payloads never
// carry user_count, so the interested count becomes unknown on every update.
func (h *Handlers) upsert(wire *discordgo.GuildScheduledEvent, kind string) {
	if wire == nil {
		return
	}
	h.upsertPayload(&models.Payload{GuildScheduledEvent: wire}, kind)
}

// upsertPayload applies p and reports it. Seeded events are only announced
// when they changed an event that was already cached.
func (h *Handlers) upsertPayload(p *models.Payload, kind string) {
	h.metrics.GatewayEvent(kind)

	h.mu.Lock()
	defer h.mu.Unlock()

	ev, changes, created, err := h.store.UpsertScheduledEvent(p)
	if err != nil {
		logging.Warn("[GATEWAY] Dropping scheduled event %s (%s): %v", p.ID, kind, err)
		return
	}
	h.metrics.SetCachedEvents(h.store.EventCount())

	if h.sink == nil {
		return
	}
	if kind == "seed" {
		if created || len(changes) == 0 {
			h.sink.EventLoaded(ev)
			return
		}
		h.sink.EventUpdated(ev, changes)
		return
	}
	if created {
		h.sink.EventCreated(ev)
		return
	}
	if len(changes) > 0 {
		h.sink.EventUpdated(ev, changes)
	}
}

func (h *Handlers) onScheduledEventDelete(_ *discordgo.Session, e *discordgo.GuildScheduledEventDelete) {
	if e.GuildScheduledEvent == nil {
		return
	}
	h.metrics.GatewayEvent("delete")

	guildID, err := models.ParseSnowflake(e.GuildID)
	if err != nil {
		return
	}
	id, err := models.ParseSnowflake(e.ID)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ev := h.store.RemoveScheduledEvent(guildID, id)
	if ev == nil {
		// never cached; build it from the payload so the delete is still recorded
		ev, err = models.NewFromPayload(&models.Payload{GuildScheduledEvent: e.GuildScheduledEvent}, h.store)
		if err != nil {
			logging.Warn("[GATEWAY] Dropping scheduled event delete %s: %v", e.ID, err)
			return
		}
	}
	h.metrics.SetCachedEvents(h.store.EventCount())

	if h.sink != nil {
		h.sink.EventDeleted(ev)
	}
}

func (h *Handlers) onScheduledEventUserAdd(_ *discordgo.Session, e *discordgo.GuildScheduledEventUserAdd) {
	h.adjustInterest(e.GuildID, e.GuildScheduledEventID, e.UserID, 1)
}

func (h *Handlers) onScheduledEventUserRemove(_ *discordgo.Session, e *discordgo.GuildScheduledEventUserRemove) {
	h.adjustInterest(e.GuildID, e.GuildScheduledEventID, e.UserID, -1)
}

func (h *Handlers) adjustInterest(rawGuildID, rawEventID, rawUserID string, delta int) {
	if delta > 0 {
		h.metrics.GatewayEvent("user_add")
	} else {
		h.metrics.GatewayEvent("user_remove")
	}

	guildID, err := models.ParseSnowflake(rawGuildID)
	if err != nil {
		return
	}
	eventID, err := models.ParseSnowflake(rawEventID)
	if err != nil {
		return
	}
	userID, _ := models.ParseOptionalSnowflake(rawUserID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.store.AdjustInterested(guildID, eventID, delta); !ok {
		return
	}
	if h.sink != nil {
		h.sink.InterestChanged(h.store.ScheduledEvent(guildID, eventID), userID, delta)
	}
}
