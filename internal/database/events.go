package database

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"go-guildevents/internal/models"
	"go-guildevents/pkg/util"
)

// RecordFromEvent flattens ev into a row.
func RecordFromEvent(ev *models.ScheduledEvent) *EventRecord {
	rec := &EventRecord{
		GuildID:     ev.GuildID().String(),
		EventID:     ev.ID().String(),
		Name:        ev.Name(),
		Description: ev.Description(),
		Image:       ev.Image(),
		StartTime:   util.UnixMillis(ev.StartTime()),
		Status:      ev.Status().Key(),
		EntityType:  ev.Type().Key(),
		Interested:  ev.InterestedUserCount(),
	}
	if end, ok := ev.EndTime(); ok {
		rec.EndTime = util.UnixMillis(end)
	}
	if id, ok := ev.CreatorID(); ok {
		rec.CreatorID = id
	}
	switch l := ev.Location().(type) {
	case models.StageLocation:
		rec.ChannelID = l.Channel.ID.String()
	case models.VoiceLocation:
		rec.ChannelID = l.Channel.ID.String()
	case models.ExternalLocation:
		rec.Location = l.Place
	}
	return rec
}

// Payload rebuilds the wire form so the row can be fed back through the
// normal decoding path.
func (r *EventRecord) Payload() *models.Payload {
	w := &discordgo.GuildScheduledEvent{
		ID:                 r.EventID,
		GuildID:            r.GuildID,
		Name:               r.Name,
		Description:        r.Description,
		Image:              r.Image,
		CreatorID:          r.CreatorID,
		ScheduledStartTime: util.FromUnixMillis(r.StartTime),
		Status:             discordgo.GuildScheduledEventStatus(r.Status),
		EntityType:         discordgo.GuildScheduledEventEntityType(r.EntityType),
		ChannelID:          r.ChannelID,
	}
	w.EntityMetadata.Location = r.Location
	if r.EndTime != 0 {
		end := util.FromUnixMillis(r.EndTime)
		w.ScheduledEndTime = &end
	}

	p := &models.Payload{GuildScheduledEvent: w}
	if r.Interested != models.UnknownInterestedCount {
		count := r.Interested
		w.UserCount = count
		p.UserCount = &count
	}
	return p
}

// SaveEvent stores the current state of ev, replacing any earlier row.
func (d *Database) SaveEvent(ev *models.ScheduledEvent) error {
	rec := RecordFromEvent(ev)
	rec.UpdatedAt = time.Now().UnixMilli()

	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO scheduled_events
		 (guild_id, event_id, name, description, image, start_time, end_time, status, entity_type,
		  channel_id, location, creator_id, interested, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.GuildID, rec.EventID, rec.Name, rec.Description, rec.Image, rec.StartTime, rec.EndTime,
		rec.Status, rec.EntityType, rec.ChannelID, rec.Location, rec.CreatorID, rec.Interested, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save scheduled event %s: %w", rec.EventID, err)
	}
	return nil
}

func (d *Database) DeleteEvent(guildID, eventID models.Snowflake) error {
	_, err := d.db.Exec(
		`DELETE FROM scheduled_events WHERE guild_id = ? AND event_id = ?`,
		guildID.String(), eventID.String(),
	)
	return err
}

// LoadGuildEvents returns the stored events of a guild by start time.
func (d *Database) LoadGuildEvents(guildID models.Snowflake) ([]*EventRecord, error) {
	rows, err := d.db.Query(
		`SELECT guild_id, event_id, name, description, image, start_time, end_time, status, entity_type,
		        channel_id, location, creator_id, interested, updated_at
		 FROM scheduled_events WHERE guild_id = ? ORDER BY start_time, CAST(event_id AS INTEGER)`,
		guildID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*EventRecord
	for rows.Next() {
		var r EventRecord
		if err := rows.Scan(&r.GuildID, &r.EventID, &r.Name, &r.Description, &r.Image, &r.StartTime, &r.EndTime,
			&r.Status, &r.EntityType, &r.ChannelID, &r.Location, &r.CreatorID, &r.Interested, &r.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}

	return records, rows.Err()
}

// ArchivedEvents is LoadGuildEvents in wire form.
func (d *Database) ArchivedEvents(guildID models.Snowflake) ([]*models.Payload, error) {
	records, err := d.LoadGuildEvents(guildID)
	if err != nil {
		return nil, err
	}
	payloads := make([]*models.Payload, 0, len(records))
	for _, r := range records {
		payloads = append(payloads, r.Payload())
	}
	return payloads, nil
}

// RecordChanges appends changes to the change log in one transaction.
func (d *Database) RecordChanges(guildID, eventID models.Snowflake, changes []models.FieldChange) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO event_changes (guild_id, event_id, field, old_value, new_value, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, c := range changes {
		if _, err := stmt.Exec(guildID.String(), eventID.String(), c.Identifier,
			FormatValue(c.Old), FormatValue(c.New), now); err != nil {
			return fmt.Errorf("record change %s: %w", c.Identifier, err)
		}
	}
	return tx.Commit()
}

// RecentChanges returns the latest changes of a guild, newest first.
func (d *Database) RecentChanges(guildID models.Snowflake, limit int) ([]*ChangeRecord, error) {
	rows, err := d.db.Query(
		`SELECT id, guild_id, event_id, field, old_value, new_value, changed_at
		 FROM event_changes WHERE guild_id = ? ORDER BY changed_at DESC, id DESC LIMIT ?`,
		guildID.String(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []*ChangeRecord
	for rows.Next() {
		var c ChangeRecord
		if err := rows.Scan(&c.ID, &c.GuildID, &c.EventID, &c.Field, &c.OldValue, &c.NewValue, &c.ChangedAt); err != nil {
			return nil, err
		}
		changes = append(changes, &c)
	}

	return changes, rows.Err()
}

// FormatValue renders a FieldChange value for storage and display.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case models.Location:
		return val.Type().String() + ":" + val.String()
	case fmt.Stringer:
		return val.String()
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
