package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// EntityLookup resolves the entities an event refers to. Missing entities
// are reported as nil, never as an error.
type EntityLookup interface {
	Guild(id Snowflake) *Guild
	User(id Snowflake) *User
	StageChannel(id Snowflake) *StageChannel
	VoiceChannel(id Snowflake) *VoiceChannel
}

// Payload is a scheduled event as delivered by REST or the gateway.
// UserCount is nil when the source did not include user_count, which the
// gateway never does.
type Payload struct {
	*discordgo.GuildScheduledEvent
	UserCount *int
}

func DecodePayload(data []byte) (*Payload, error) {
	var wire discordgo.GuildScheduledEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode scheduled event: %w", err)
	}

	var probe struct {
		UserCount *int `json:"user_count"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode scheduled event: %w", err)
	}

	return &Payload{GuildScheduledEvent: &wire, UserCount: probe.UserCount}, nil
}

// DecodeScheduledEvent builds a new event from raw JSON.
func DecodeScheduledEvent(data []byte, lookup EntityLookup) (*ScheduledEvent, error) {
	p, err := DecodePayload(data)
	if err != nil {
		return nil, err
	}
	return NewFromPayload(p, lookup)
}

func NewFromPayload(p *Payload, lookup EntityLookup) (*ScheduledEvent, error) {
	if p == nil || p.GuildScheduledEvent == nil {
		return nil, invalidArgument("scheduled event payload may not be nil")
	}

	id, err := ParseSnowflake(p.ID)
	if err != nil {
		return nil, fmt.Errorf("scheduled event id: %w", err)
	}
	guildID, err := ParseSnowflake(p.GuildID)
	if err != nil {
		return nil, fmt.Errorf("scheduled event guild_id: %w", err)
	}

	var guild *Guild
	if lookup != nil {
		guild = lookup.Guild(guildID)
	}
	if guild == nil {
		guild = &Guild{ID: guildID}
	}

	ev := NewScheduledEvent(id, guild)
	if err := ApplyPayload(ev, p, lookup); err != nil {
		return nil, err
	}
	return ev, nil
}

// ApplyPayload overwrites every mutable field of ev from p. The id and
// guild of ev are left alone.
func ApplyPayload(ev *ScheduledEvent, p *Payload, lookup EntityLookup) error {
	w := p.GuildScheduledEvent

	creatorID, err := ParseOptionalSnowflake(w.CreatorID)
	if err != nil {
		return fmt.Errorf("scheduled event creator_id: %w", err)
	}
	channelID, err := ParseOptionalSnowflake(w.ChannelID)
	if err != nil {
		return fmt.Errorf("scheduled event channel_id: %w", err)
	}

	ev.SetName(w.Name).
		SetDescription(w.Description).
		SetImage(w.Image).
		SetStartTime(w.ScheduledStartTime).
		SetStatus(StatusFromKey(int(w.Status))).
		SetCreatorID(creatorID)

	if w.ScheduledEndTime != nil {
		ev.SetEndTime(*w.ScheduledEndTime)
	} else {
		ev.SetEndTime(time.Time{})
	}

	var creator *User
	if w.Creator != nil {
		creator = UserFromWire(w.Creator)
	} else if creatorID != 0 && lookup != nil {
		creator = lookup.User(creatorID)
	}
	ev.SetCreator(creator)

	if p.UserCount != nil {
		ev.SetInterestedUserCount(*p.UserCount)
	} else {
		ev.SetInterestedUserCount(UnknownInterestedCount)
	}

	ev.SetLocation(resolveWireLocation(w, channelID, lookup))
	return nil
}

func resolveWireLocation(w *discordgo.GuildScheduledEvent, channelID Snowflake, lookup EntityLookup) Location {
	var (
		stage    *StageChannel
		voice    *VoiceChannel
		external *string
	)
	place := w.EntityMetadata.Location

	switch TypeFromKey(int(w.EntityType)) {
	case TypeStageInstance:
		if channelID != 0 && lookup != nil {
			stage = lookup.StageChannel(channelID)
		}
	case TypeVoice:
		if channelID != 0 && lookup != nil {
			voice = lookup.VoiceChannel(channelID)
		}
	case TypeExternal:
		external = &place
	default:
		// Legacy payloads without entity_type: use whatever is present.
		if channelID != 0 && lookup != nil {
			stage = lookup.StageChannel(channelID)
			voice = lookup.VoiceChannel(channelID)
		}
		if place != "" {
			external = &place
		}
	}

	return ResolveLocation(stage, voice, external)
}

// EncodePayload is the inverse of ApplyPayload.
func EncodePayload(ev *ScheduledEvent) *Payload {
	w := &discordgo.GuildScheduledEvent{
		ID:                 ev.id.String(),
		GuildID:            ev.GuildID().String(),
		Name:               ev.name,
		Description:        ev.description,
		Image:              ev.image,
		ScheduledStartTime: ev.startTime,
		Status:             discordgo.GuildScheduledEventStatus(ev.status.Key()),
	}
	if ev.creatorID != 0 {
		w.CreatorID = ev.creatorID.String()
	}
	if end, ok := ev.EndTime(); ok {
		w.ScheduledEndTime = &end
	}
	if ev.creator != nil {
		w.Creator = UserToWire(ev.creator)
	}

	switch l := ev.location.(type) {
	case StageLocation:
		w.EntityType = discordgo.GuildScheduledEventEntityTypeStageInstance
		w.ChannelID = l.Channel.ID.String()
	case VoiceLocation:
		w.EntityType = discordgo.GuildScheduledEventEntityTypeVoice
		w.ChannelID = l.Channel.ID.String()
	case ExternalLocation:
		w.EntityType = discordgo.GuildScheduledEventEntityTypeExternal
		w.EntityMetadata.Location = l.Place
	}

	p := &Payload{GuildScheduledEvent: w}
	if ev.interestedUserCount != UnknownInterestedCount {
		count := ev.interestedUserCount
		w.UserCount = count
		p.UserCount = &count
	}
	return p
}

func UserFromWire(u *discordgo.User) *User {
	if u == nil {
		return nil
	}
	id, err := ParseSnowflake(u.ID)
	if err != nil {
		return nil
	}
	return &User{
		ID:         id,
		Username:   u.Username,
		GlobalName: u.GlobalName,
		Bot:        u.Bot,
	}
}

func UserToWire(u *User) *discordgo.User {
	return &discordgo.User{
		ID:         u.ID.String(),
		Username:   u.Username,
		GlobalName: u.GlobalName,
		Bot:        u.Bot,
	}
}

func MemberFromWire(m *discordgo.Member) *Member {
	if m == nil {
		return nil
	}
	guildID, _ := ParseOptionalSnowflake(m.GuildID)
	member := &Member{
		User:     UserFromWire(m.User),
		GuildID:  guildID,
		Nick:     m.Nick,
		JoinedAt: m.JoinedAt,
	}
	for _, r := range m.Roles {
		if id, err := ParseSnowflake(r); err == nil {
			member.RoleIDs = append(member.RoleIDs, id)
		}
	}
	return member
}
