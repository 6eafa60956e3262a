package logging

import (
	"go-guildevents/internal/models"
)

// Scheduled event lifecycle lines carry "audit": true so they can be
// filtered out of the general log stream.

func LogScheduledEventCreated(ev *models.ScheduledEvent) {
	Z().Info().
		Bool("audit", true).
		Str("action", "scheduled_event_created").
		Str("guild_id", ev.GuildID().String()).
		Str("event_id", ev.ID().String()).
		Str("name", ev.Name()).
		Str("type", ev.Type().String()).
		Str("status", ev.Status().String()).
		Time("start_time", ev.StartTime()).
		Msg("Scheduled event created")
}

func LogScheduledEventUpdated(ev *models.ScheduledEvent, changes []models.FieldChange) {
	if len(changes) == 0 {
		return
	}

	fields := make([]string, 0, len(changes))
	for _, c := range changes {
		fields = append(fields, c.Identifier)
	}

	Z().Info().
		Bool("audit", true).
		Str("action", "scheduled_event_updated").
		Str("guild_id", ev.GuildID().String()).
		Str("event_id", ev.ID().String()).
		Strs("fields", fields).
		Msg("Scheduled event updated")
}

func LogScheduledEventDeleted(guildID, eventID models.Snowflake) {
	Z().Info().
		Bool("audit", true).
		Str("action", "scheduled_event_deleted").
		Str("guild_id", guildID.String()).
		Str("event_id", eventID.String()).
		Msg("Scheduled event deleted")
}

func LogInterestChanged(guildID, eventID, userID models.Snowflake, delta int) {
	Z().Debug().
		Bool("audit", true).
		Str("action", "scheduled_event_interest").
		Str("guild_id", guildID.String()).
		Str("event_id", eventID.String()).
		Str("user_id", userID.String()).
		Int("delta", delta).
		Msg("Scheduled event interest changed")
}
