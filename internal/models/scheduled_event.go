package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1000

	ImageURLFormat = "https://cdn.discordapp.com/guild-events/%s/%s.%s"

	// UnknownInterestedCount is reported when the fetch that produced the
	// event did not include a user count.
	UnknownInterestedCount = -1
)

// ScheduledEvent is the cached view of a guild scheduled event.
//
// Identity is the snowflake id; every other field is overwritten in place by
// the update path (last write wins). The type carries no locking: whoever
// owns the cache serializes updates against reads.
type ScheduledEvent struct {
	id    Snowflake
	guild *Guild

	name        string
	description string
	image       string
	startTime   time.Time
	endTime     time.Time
	status      Status
	creatorID   Snowflake
	creator     *User

	interestedUserCount int

	location Location
}

func NewScheduledEvent(id Snowflake, guild *Guild) *ScheduledEvent {
	return &ScheduledEvent{
		id:                  id,
		guild:               guild,
		status:              StatusUnknown,
		interestedUserCount: UnknownInterestedCount,
	}
}

func (e *ScheduledEvent) ID() Snowflake { return e.id }

func (e *ScheduledEvent) Guild() *Guild { return e.guild }

func (e *ScheduledEvent) GuildID() Snowflake {
	if e.guild == nil {
		return 0
	}
	return e.guild.ID
}

func (e *ScheduledEvent) Name() string { return e.name }

// Description returns "" when the event has none.
func (e *ScheduledEvent) Description() string { return e.description }

// Image is the raw cover image hash.
func (e *ScheduledEvent) Image() string { return e.image }

func (e *ScheduledEvent) ImageURL() (string, bool) {
	return ImageURL(e.id, e.image)
}

func (e *ScheduledEvent) StartTime() time.Time { return e.startTime }

func (e *ScheduledEvent) EndTime() (time.Time, bool) {
	return e.endTime, !e.endTime.IsZero()
}

func (e *ScheduledEvent) Status() Status { return e.status }

func (e *ScheduledEvent) Type() Type {
	if e.location == nil {
		return TypeUnknown
	}
	return e.location.Type()
}

func (e *ScheduledEvent) Location() Location { return e.location }

// LocationString is the hosting channel id, the external place, or "".
func (e *ScheduledEvent) LocationString() string {
	if e.location == nil {
		return ""
	}
	return e.location.String()
}

// Channel is nil for external and unknown events.
func (e *ScheduledEvent) Channel() GuildChannel {
	switch l := e.location.(type) {
	case StageLocation:
		return l.Channel
	case VoiceLocation:
		return l.Channel
	default:
		return nil
	}
}

func (e *ScheduledEvent) StageChannel() *StageChannel {
	if l, ok := e.location.(StageLocation); ok {
		return l.Channel
	}
	return nil
}

func (e *ScheduledEvent) VoiceChannel() *VoiceChannel {
	if l, ok := e.location.(VoiceLocation); ok {
		return l.Channel
	}
	return nil
}

func (e *ScheduledEvent) ExternalLocation() (string, bool) {
	if l, ok := e.location.(ExternalLocation); ok {
		return l.Place, true
	}
	return "", false
}

// CreatorIDLong is 0 for events that predate creator tracking.
func (e *ScheduledEvent) CreatorIDLong() Snowflake { return e.creatorID }

func (e *ScheduledEvent) CreatorID() (string, bool) {
	if e.creatorID == 0 {
		return "", false
	}
	return e.creatorID.String(), true
}

// Creator can be nil even when CreatorIDLong is set: the user may not be
// cached or may have been deleted.
func (e *ScheduledEvent) Creator() *User { return e.creator }

func (e *ScheduledEvent) InterestedUserCount() int { return e.interestedUserCount }

func (e *ScheduledEvent) SetName(name string) *ScheduledEvent {
	e.name = name
	return e
}

func (e *ScheduledEvent) SetDescription(description string) *ScheduledEvent {
	e.description = description
	return e
}

func (e *ScheduledEvent) SetImage(image string) *ScheduledEvent {
	e.image = image
	return e
}

func (e *ScheduledEvent) SetStartTime(t time.Time) *ScheduledEvent {
	e.startTime = t
	return e
}

// SetEndTime with the zero time clears the end time.
func (e *ScheduledEvent) SetEndTime(t time.Time) *ScheduledEvent {
	e.endTime = t
	return e
}

func (e *ScheduledEvent) SetStatus(status Status) *ScheduledEvent {
	e.status = status
	return e
}

func (e *ScheduledEvent) SetCreatorID(id Snowflake) *ScheduledEvent {
	e.creatorID = id
	return e
}

func (e *ScheduledEvent) SetCreator(user *User) *ScheduledEvent {
	e.creator = user
	return e
}

func (e *ScheduledEvent) SetInterestedUserCount(count int) *ScheduledEvent {
	e.interestedUserCount = count
	return e
}

func (e *ScheduledEvent) SetLocation(location Location) *ScheduledEvent {
	e.location = normalizeLocation(location)
	return e
}

// normalizeLocation turns channel-hosted locations without a channel into
// an unknown location.
func normalizeLocation(location Location) Location {
	switch l := location.(type) {
	case StageLocation:
		if l.Channel == nil {
			return nil
		}
	case *StageLocation:
		if l == nil || l.Channel == nil {
			return nil
		}
		return *l
	case VoiceLocation:
		if l.Channel == nil {
			return nil
		}
	case *VoiceLocation:
		if l == nil || l.Channel == nil {
			return nil
		}
		return *l
	case *ExternalLocation:
		if l == nil {
			return nil
		}
		return *l
	}
	return location
}

// SetStageChannel replaces the location with ch. A nil ch only clears a
// stage location.
func (e *ScheduledEvent) SetStageChannel(ch *StageChannel) *ScheduledEvent {
	if ch != nil {
		e.location = StageLocation{Channel: ch}
	} else if _, ok := e.location.(StageLocation); ok {
		e.location = nil
	}
	return e
}

func (e *ScheduledEvent) SetVoiceChannel(ch *VoiceChannel) *ScheduledEvent {
	if ch != nil {
		e.location = VoiceLocation{Channel: ch}
	} else if _, ok := e.location.(VoiceLocation); ok {
		e.location = nil
	}
	return e
}

func (e *ScheduledEvent) SetExternalLocation(place string) *ScheduledEvent {
	if place != "" {
		e.location = ExternalLocation{Place: place}
	} else if _, ok := e.location.(ExternalLocation); ok {
		e.location = nil
	}
	return e
}

// SetLocations stores the winner of ResolveLocation. Deserializers never
// pass more than one candidate; when they do, stage beats voice beats
// external.
func (e *ScheduledEvent) SetLocations(stage *StageChannel, voice *VoiceChannel, external *string) *ScheduledEvent {
	e.location = ResolveLocation(stage, voice, external)
	return e
}

// Equal compares ids only, so stale copies match the canonical instance.
func (e *ScheduledEvent) Equal(other *ScheduledEvent) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.id == other.id
}

// HashKey is the value to key sets and maps of events by.
func (e *ScheduledEvent) HashKey() Snowflake { return e.id }

// CompareTo orders events of one guild by start instant, then id. It fails
// when either event is nil or they belong to different guilds.
func (e *ScheduledEvent) CompareTo(other *ScheduledEvent) (int, error) {
	if e == nil || other == nil {
		return 0, invalidArgument("guild scheduled event may not be nil")
	}
	if e.GuildID() != other.GuildID() {
		return 0, invalidArgument("cannot compare two guild scheduled events belonging to separate guilds")
	}

	if c := e.startTime.Compare(other.startTime); c != 0 {
		return c, nil
	}
	switch {
	case e.id < other.id:
		return -1, nil
	case e.id > other.id:
		return 1, nil
	default:
		return 0, nil
	}
}

// SortScheduledEvents sorts events in place with CompareTo. Nothing is moved
// when the events span more than one guild.
func SortScheduledEvents(events []*ScheduledEvent) error {
	for i := 1; i < len(events); i++ {
		if _, err := events[0].CompareTo(events[i]); err != nil {
			return err
		}
	}
	sort.Slice(events, func(i, j int) bool {
		c, _ := events[i].CompareTo(events[j])
		return c < 0
	})
	return nil
}

func (e *ScheduledEvent) String() string {
	return "GSchedEvent:" + e.name + "(" + e.id.String() + ")"
}

// ImageURL formats the CDN url for a cover image hash. Hashes prefixed with
// "a_" are animated and served as gif.
func ImageURL(id Snowflake, hash string) (string, bool) {
	if hash == "" {
		return "", false
	}
	ext := "png"
	if strings.HasPrefix(hash, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf(ImageURLFormat, id.String(), hash, ext), true
}
