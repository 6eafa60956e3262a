package database

// GuildConfig is per-guild bot configuration.
type GuildConfig struct {
	GuildID      string
	LogChannelID string
	CreatedAt    int64
	UpdatedAt    int64
}

// EventRecord is the last known state of a scheduled event. Times are
// unix milliseconds; EndTime is 0 when the event has no end.
type EventRecord struct {
	GuildID     string
	EventID     string
	Name        string
	Description string
	Image       string
	StartTime   int64
	EndTime     int64
	Status      int
	EntityType  int
	ChannelID   string
	Location    string // External location text
	CreatorID   string
	Interested  int // -1 when unknown
	UpdatedAt   int64
}

// ChangeRecord is one field change reported by the gateway.
type ChangeRecord struct {
	ID        int64
	GuildID   string
	EventID   string
	Field     string
	OldValue  string
	NewValue  string
	ChangedAt int64
}
