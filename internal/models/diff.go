package models

import "time"

const (
	FieldName        = "guild_scheduled_event_name"
	FieldDescription = "guild_scheduled_event_description"
	FieldImage       = "guild_scheduled_event_image"
	FieldStartTime   = "guild_scheduled_event_start_time"
	FieldEndTime     = "guild_scheduled_event_end_time"
	FieldStatus      = "guild_scheduled_event_status"
	FieldLocation    = "guild_scheduled_event_location"
)

// Snapshot is a detached copy of the fields an update can change.
type Snapshot struct {
	ID                  Snowflake
	GuildID             Snowflake
	Name                string
	Description         string
	Image               string
	StartTime           time.Time
	EndTime             time.Time
	Status              Status
	CreatorID           Snowflake
	InterestedUserCount int
	Location            Location
}

func (e *ScheduledEvent) Snapshot() Snapshot {
	return Snapshot{
		ID:                  e.id,
		GuildID:             e.GuildID(),
		Name:                e.name,
		Description:         e.description,
		Image:               e.image,
		StartTime:           e.startTime,
		EndTime:             e.endTime,
		Status:              e.status,
		CreatorID:           e.creatorID,
		InterestedUserCount: e.interestedUserCount,
		Location:            e.location,
	}
}

// FieldChange describes one field that moved between two snapshots.
// Old and New hold the field's own type; a missing end time is nil.
type FieldChange struct {
	Identifier string
	Old        interface{}
	New        interface{}
}

// Diff lists changed fields in a fixed order. Interested user counts are
// not reported because the gateway never carries them.
func Diff(prev, next Snapshot) []FieldChange {
	var changes []FieldChange
	add := func(id string, old, new interface{}) {
		changes = append(changes, FieldChange{Identifier: id, Old: old, New: new})
	}

	if prev.Name != next.Name {
		add(FieldName, prev.Name, next.Name)
	}
	if prev.Description != next.Description {
		add(FieldDescription, prev.Description, next.Description)
	}
	if prev.Image != next.Image {
		add(FieldImage, prev.Image, next.Image)
	}
	if !prev.StartTime.Equal(next.StartTime) {
		add(FieldStartTime, prev.StartTime, next.StartTime)
	}
	if !prev.EndTime.Equal(next.EndTime) {
		add(FieldEndTime, optionalTime(prev.EndTime), optionalTime(next.EndTime))
	}
	if prev.Status != next.Status {
		add(FieldStatus, prev.Status, next.Status)
	}
	if !locationEqual(prev.Location, next.Location) {
		add(FieldLocation, prev.Location, next.Location)
	}
	return changes
}

func optionalTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
