package cache

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"go-guildevents/internal/models"
)

// Store is the in-memory entity cache. One ScheduledEvent pointer exists
// per event id for as long as the event is cached; updates overwrite it in
// place.
type Store struct {
	mu     sync.RWMutex
	guilds map[models.Snowflake]*models.Guild
	users  map[models.Snowflake]*models.User
	stages map[models.Snowflake]*models.StageChannel
	voices map[models.Snowflake]*models.VoiceChannel
	events map[models.Snowflake]map[models.Snowflake]*models.ScheduledEvent
}

func NewStore() *Store {
	return &Store{
		guilds: make(map[models.Snowflake]*models.Guild),
		users:  make(map[models.Snowflake]*models.User),
		stages: make(map[models.Snowflake]*models.StageChannel),
		voices: make(map[models.Snowflake]*models.VoiceChannel),
		events: make(map[models.Snowflake]map[models.Snowflake]*models.ScheduledEvent),
	}
}

func (s *Store) Guild(id models.Snowflake) *models.Guild {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guilds[id]
}

func (s *Store) User(id models.Snowflake) *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id]
}

func (s *Store) StageChannel(id models.Snowflake) *models.StageChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stages[id]
}

func (s *Store) VoiceChannel(id models.Snowflake) *models.VoiceChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voices[id]
}

// PutGuild caches g. An already cached guild keeps its pointer and has its
// fields refreshed, so events referring to it see the new values.
func (s *Store) PutGuild(g *models.Guild) *models.Guild {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.guilds[g.ID]; ok {
		existing.Name = g.Name
		existing.OwnerID = g.OwnerID
		return existing
	}
	s.guilds[g.ID] = g
	return g
}

func (s *Store) PutUser(u *models.User) {
	if u == nil {
		return
	}
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
}

func (s *Store) PutStageChannel(ch *models.StageChannel) {
	s.mu.Lock()
	s.stages[ch.ID] = ch
	s.mu.Unlock()
}

func (s *Store) PutVoiceChannel(ch *models.VoiceChannel) {
	s.mu.Lock()
	s.voices[ch.ID] = ch
	s.mu.Unlock()
}

func (s *Store) RemoveChannel(id models.Snowflake) {
	s.mu.Lock()
	delete(s.stages, id)
	delete(s.voices, id)
	s.mu.Unlock()
}

// SeedGuild caches a guild and its stage and voice channels from a
// GUILD_CREATE payload.
func (s *Store) SeedGuild(g *discordgo.Guild) (*models.Guild, error) {
	id, err := models.ParseSnowflake(g.ID)
	if err != nil {
		return nil, fmt.Errorf("guild id: %w", err)
	}
	ownerID, _ := models.ParseOptionalSnowflake(g.OwnerID)
	guild := s.PutGuild(&models.Guild{ID: id, Name: g.Name, OwnerID: ownerID})

	for _, ch := range g.Channels {
		if ch == nil {
			continue
		}
		s.PutChannel(id, ch)
	}
	return guild, nil
}

// PutChannel caches ch if it is a stage or voice channel.
func (s *Store) PutChannel(guildID models.Snowflake, ch *discordgo.Channel) {
	chID, err := models.ParseSnowflake(ch.ID)
	if err != nil {
		return
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildStageVoice:
		s.PutStageChannel(&models.StageChannel{ID: chID, GuildID: guildID, Name: ch.Name})
	case discordgo.ChannelTypeGuildVoice:
		s.PutVoiceChannel(&models.VoiceChannel{ID: chID, GuildID: guildID, Name: ch.Name})
	}
}

// RemoveGuild forgets the guild together with its channels and events and
// returns the events that were dropped.
func (s *Store) RemoveGuild(id models.Snowflake) []*models.ScheduledEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.guilds, id)
	for chID, ch := range s.stages {
		if ch.GuildID == id {
			delete(s.stages, chID)
		}
	}
	for chID, ch := range s.voices {
		if ch.GuildID == id {
			delete(s.voices, chID)
		}
	}

	dropped := make([]*models.ScheduledEvent, 0, len(s.events[id]))
	for _, ev := range s.events[id] {
		dropped = append(dropped, ev)
	}
	delete(s.events, id)
	return dropped
}

func (s *Store) ScheduledEvent(guildID, id models.Snowflake) *models.ScheduledEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events[guildID][id]
}

// UpsertScheduledEvent applies p to the cached event with the same id, or
// creates it. Fields are overwritten unconditionally; the returned changes
// list what differs from the previous state and is empty on create.
func (s *Store) UpsertScheduledEvent(p *models.Payload) (*models.ScheduledEvent, []models.FieldChange, bool, error) {
	if p == nil || p.GuildScheduledEvent == nil {
		return nil, nil, false, fmt.Errorf("upsert scheduled event: %w", models.ErrInvalidArgument)
	}
	guildID, err := models.ParseSnowflake(p.GuildID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("scheduled event guild_id: %w", err)
	}
	id, err := models.ParseSnowflake(p.ID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("scheduled event id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view := lockedView{s}
	if p.Creator != nil {
		if u := models.UserFromWire(p.Creator); u != nil {
			s.users[u.ID] = u
		}
	}

	if ev, ok := s.events[guildID][id]; ok {
		before := ev.Snapshot()
		if err := models.ApplyPayload(ev, p, view); err != nil {
			return nil, nil, false, err
		}
		return ev, models.Diff(before, ev.Snapshot()), false, nil
	}

	ev, err := models.NewFromPayload(p, view)
	if err != nil {
		return nil, nil, false, err
	}
	if _, ok := s.guilds[guildID]; !ok {
		s.guilds[guildID] = ev.Guild()
	}
	if s.events[guildID] == nil {
		s.events[guildID] = make(map[models.Snowflake]*models.ScheduledEvent)
	}
	s.events[guildID][id] = ev
	return ev, nil, true, nil
}

// RemoveScheduledEvent returns the removed event, nil when it was not cached.
func (s *Store) RemoveScheduledEvent(guildID, id models.Snowflake) *models.ScheduledEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[guildID][id]
	if !ok {
		return nil
	}
	delete(s.events[guildID], id)
	if len(s.events[guildID]) == 0 {
		delete(s.events, guildID)
	}
	return ev
}

// ScheduledEvents returns the guild's cached events by start time, then id.
func (s *Store) ScheduledEvents(guildID models.Snowflake) []*models.ScheduledEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.ScheduledEvent, 0, len(s.events[guildID]))
	for _, ev := range s.events[guildID] {
		list = append(list, ev)
	}
	// sorting reads fields that upserts write, so it stays under the lock;
	// one guild only, cannot fail
	_ = models.SortScheduledEvents(list)
	return list
}

func (s *Store) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, byID := range s.events {
		n += len(byID)
	}
	return n
}

// AdjustInterested adds delta to a known interested count. Unknown counts
// stay unknown. It reports the new count and whether the event is cached.
func (s *Store) AdjustInterested(guildID, id models.Snowflake, delta int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[guildID][id]
	if !ok {
		return 0, false
	}
	count := ev.InterestedUserCount()
	if count == models.UnknownInterestedCount {
		return count, true
	}
	count += delta
	if count < 0 {
		count = 0
	}
	ev.SetInterestedUserCount(count)
	return count, true
}

// lockedView reads the maps directly; the caller holds s.mu.
type lockedView struct {
	s *Store
}

func (v lockedView) Guild(id models.Snowflake) *models.Guild { return v.s.guilds[id] }
func (v lockedView) User(id models.Snowflake) *models.User   { return v.s.users[id] }

func (v lockedView) StageChannel(id models.Snowflake) *models.StageChannel {
	return v.s.stages[id]
}

func (v lockedView) VoiceChannel(id models.Snowflake) *models.VoiceChannel {
	return v.s.voices[id]
}
