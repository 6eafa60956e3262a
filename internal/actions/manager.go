package actions

import (
	"context"
	"fmt"
	"time"
	"unicode/utf16"

	"github.com/bwmarrin/discordgo"

	"go-guildevents/internal/dispatcher"
	"go-guildevents/internal/models"
)

// MaxExternalLocationLength bounds entity_metadata.location.
const MaxExternalLocationLength = 100

type changeFlag uint8

const (
	changeName changeFlag = 1 << iota
	changeDescription
	changeImage
	changeStartTime
	changeEndTime
	changeStatus
	changeLocation
)

// Manager collects field changes for one scheduled event and sends them as
// a single PATCH. It is bound to the event's guild and id only; it never
// reads the cached field values. The first invalid setter call is kept and
// returned by Complete.
type Manager struct {
	executor dispatcher.Executor
	perms    PermissionChecker
	guildID  models.Snowflake
	eventID  models.Snowflake

	changed     changeFlag
	name        string
	description string
	image       string
	startTime   time.Time
	endTime     time.Time
	status      models.Status
	current     models.Status
	location    models.Location
	reason      string
	err         error
}

func newManager(executor dispatcher.Executor, perms PermissionChecker, ev *models.ScheduledEvent) *Manager {
	return &Manager{
		executor: executor,
		perms:    perms,
		guildID:  ev.GuildID(),
		eventID:  ev.ID(),
		current:  models.StatusUnknown,
	}
}

func (m *Manager) GuildID() models.Snowflake { return m.guildID }
func (m *Manager) EventID() models.Snowflake { return m.eventID }

func (m *Manager) fail(format string, args ...interface{}) *Manager {
	if m.err == nil {
		m.err = fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), models.ErrInvalidArgument)
	}
	return m
}

// codeUnits is the UTF-16 length Discord applies its limits to.
func codeUnits(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func (m *Manager) SetName(name string) *Manager {
	n := codeUnits(name)
	if n == 0 || n > models.MaxNameLength {
		return m.fail("name must be 1 to %d characters", models.MaxNameLength)
	}
	m.name = name
	m.changed |= changeName
	return m
}

func (m *Manager) SetDescription(description string) *Manager {
	if codeUnits(description) > models.MaxDescriptionLength {
		return m.fail("description may not exceed %d characters", models.MaxDescriptionLength)
	}
	m.description = description
	m.changed |= changeDescription
	return m
}

// SetImage takes a data URI; an empty string removes the cover image.
func (m *Manager) SetImage(dataURI string) *Manager {
	m.image = dataURI
	m.changed |= changeImage
	return m
}

func (m *Manager) SetStartTime(t time.Time) *Manager {
	if t.IsZero() {
		return m.fail("start time may not be zero")
	}
	m.startTime = t
	m.changed |= changeStartTime
	return m
}

// SetEndTime with a zero time clears the end time.
func (m *Manager) SetEndTime(t time.Time) *Manager {
	m.endTime = t
	m.changed |= changeEndTime
	return m
}

// CurrentStatus tells the manager what status the event has now, so that
// SetStatus can reject transitions the platform would refuse.
func (m *Manager) CurrentStatus(status models.Status) *Manager {
	m.current = status
	return m
}

func (m *Manager) SetStatus(status models.Status) *Manager {
	if status == models.StatusUnknown || status == models.StatusScheduled {
		return m.fail("status can only be changed to ACTIVE, COMPLETED or CANCELED, got %s", status)
	}
	if m.current != models.StatusUnknown && !m.current.CanTransitionTo(status) {
		return m.fail("cannot move scheduled event from %s to %s", m.current, status)
	}
	m.status = status
	m.changed |= changeStatus
	return m
}

func (m *Manager) SetLocation(location models.Location) *Manager {
	switch l := location.(type) {
	case models.StageLocation:
		if l.Channel == nil {
			return m.fail("stage channel may not be nil")
		}
		if l.Channel.GuildID != 0 && l.Channel.GuildID != m.guildID {
			return m.fail("stage channel %s is not in guild %s", l.Channel.ID, m.guildID)
		}
	case models.VoiceLocation:
		if l.Channel == nil {
			return m.fail("voice channel may not be nil")
		}
		if l.Channel.GuildID != 0 && l.Channel.GuildID != m.guildID {
			return m.fail("voice channel %s is not in guild %s", l.Channel.ID, m.guildID)
		}
	case models.ExternalLocation:
		n := codeUnits(l.Place)
		if n == 0 || n > MaxExternalLocationLength {
			return m.fail("external location must be 1 to %d characters", MaxExternalLocationLength)
		}
	default:
		return m.fail("location may not be nil")
	}
	m.location = location
	m.changed |= changeLocation
	return m
}

func (m *Manager) Reason(reason string) *Manager {
	m.reason = reason
	return m
}

// Reset drops all pending changes, the reason and any setter error.
func (m *Manager) Reset() *Manager {
	*m = Manager{
		executor: m.executor,
		perms:    m.perms,
		guildID:  m.guildID,
		eventID:  m.eventID,
		current:  models.StatusUnknown,
	}
	return m
}

func (m *Manager) HasChanges() bool { return m.changed != 0 }

func (m *Manager) Err() error { return m.err }

// Body is the PATCH payload holding only the changed fields.
func (m *Manager) Body() (map[string]interface{}, error) {
	if m.err != nil {
		return nil, m.err
	}

	body := make(map[string]interface{})
	if m.changed&changeName != 0 {
		body["name"] = m.name
	}
	if m.changed&changeDescription != 0 {
		body["description"] = m.description
	}
	if m.changed&changeImage != 0 {
		if m.image == "" {
			body["image"] = nil
		} else {
			body["image"] = m.image
		}
	}
	if m.changed&changeStartTime != 0 {
		body["scheduled_start_time"] = m.startTime.UTC().Format(time.RFC3339)
	}
	if m.changed&changeEndTime != 0 {
		if m.endTime.IsZero() {
			body["scheduled_end_time"] = nil
		} else {
			body["scheduled_end_time"] = m.endTime.UTC().Format(time.RFC3339)
		}
	}
	if m.changed&changeStatus != 0 {
		body["status"] = m.status.Key()
	}
	if m.changed&changeLocation != 0 {
		switch l := m.location.(type) {
		case models.StageLocation:
			body["entity_type"] = discordgo.GuildScheduledEventEntityTypeStageInstance
			body["channel_id"] = l.Channel.ID.String()
			body["entity_metadata"] = nil
		case models.VoiceLocation:
			body["entity_type"] = discordgo.GuildScheduledEventEntityTypeVoice
			body["channel_id"] = l.Channel.ID.String()
			body["entity_metadata"] = nil
		case models.ExternalLocation:
			body["entity_type"] = discordgo.GuildScheduledEventEntityTypeExternal
			body["channel_id"] = nil
			body["entity_metadata"] = map[string]string{"location": l.Place}
		}
	}

	if m.changed&changeStartTime != 0 && m.changed&changeEndTime != 0 &&
		!m.endTime.IsZero() && !m.endTime.After(m.startTime) {
		return nil, fmt.Errorf("end time must be after start time: %w", models.ErrInvalidArgument)
	}
	if _, external := m.location.(models.ExternalLocation); external &&
		m.changed&changeEndTime != 0 && m.endTime.IsZero() {
		return nil, fmt.Errorf("external events require an end time: %w", models.ErrInvalidArgument)
	}
	return body, nil
}

// Queue validates the pending changes and submits the PATCH. With nothing
// changed it resolves at once without a request.
func (m *Manager) Queue(ctx context.Context) (*dispatcher.Future, error) {
	if m.perms == nil || !m.perms.HasGuildPermission(m.guildID, discordgo.PermissionManageEvents) {
		return nil, &models.InsufficientPermissionError{
			GuildID:        m.guildID,
			Permission:     discordgo.PermissionManageEvents,
			PermissionName: "MANAGE_EVENTS",
		}
	}

	body, err := m.Body()
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return dispatcher.CompletedFuture(nil, nil), nil
	}

	route, err := dispatcher.RouteModifyScheduledEvent.Compile(m.guildID.String(), m.eventID.String())
	if err != nil {
		return nil, err
	}
	return m.executor.Submit(ctx, &dispatcher.Request{
		Route:    route,
		Body:     body,
		Reason:   m.reason,
		Priority: dispatcher.PriorityNormal,
	}), nil
}

// Complete sends the changes and waits. The returned event payload is
// the platform's view after the update, nil when nothing was sent.
func (m *Manager) Complete(ctx context.Context) (*models.Payload, error) {
	f, err := m.Queue(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := f.Await(ctx)
	if err != nil || resp == nil {
		return nil, err
	}
	return models.DecodePayload(resp.Body)
}
