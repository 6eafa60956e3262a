package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Database struct {
	db *sql.DB
}

var globalDB *Database

// Initialize opens the database at dbPath and makes it the global instance.
func Initialize(dbPath string) error {
	d, err := Open(dbPath)
	if err != nil {
		return err
	}
	globalDB = d
	return nil
}

// Open creates or opens the SQLite database and applies the schema.
func Open(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	d := &Database{db: db}
	if err := d.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return d, nil
}

// GetDB returns the global database instance
func GetDB() *Database {
	if globalDB != nil && globalDB.db != nil {
		if err := globalDB.db.Ping(); err != nil {
			return nil
		}
	}
	return globalDB
}

// IsConnected checks if database connection is alive
func IsConnected() bool {
	if globalDB == nil || globalDB.db == nil {
		return false
	}
	return globalDB.db.Ping() == nil
}

// Close closes the global database connection
func Close() error {
	if globalDB != nil {
		return globalDB.Close()
	}
	return nil
}

func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *Database) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guild_config (
		guild_id TEXT PRIMARY KEY,
		log_channel_id TEXT DEFAULT '',
		created_at INTEGER DEFAULT 0,
		updated_at INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS scheduled_events (
		guild_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT DEFAULT '',
		image TEXT DEFAULT '',
		start_time INTEGER NOT NULL,
		end_time INTEGER DEFAULT 0,
		status INTEGER NOT NULL,
		entity_type INTEGER NOT NULL,
		channel_id TEXT DEFAULT '',
		location TEXT DEFAULT '',
		creator_id TEXT DEFAULT '',
		interested INTEGER DEFAULT -1,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (guild_id, event_id)
	);

	CREATE INDEX IF NOT EXISTS idx_scheduled_events_start ON scheduled_events(guild_id, start_time);

	CREATE TABLE IF NOT EXISTS event_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		field TEXT NOT NULL,
		old_value TEXT DEFAULT '',
		new_value TEXT DEFAULT '',
		changed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_event_changes_guild ON event_changes(guild_id, changed_at);
	CREATE INDEX IF NOT EXISTS idx_event_changes_event ON event_changes(event_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

// GetGuildConfig retrieves guild configuration
func (d *Database) GetGuildConfig(guildID string) (*GuildConfig, error) {
	var config GuildConfig
	err := d.db.QueryRow(
		`SELECT guild_id, log_channel_id, created_at, updated_at FROM guild_config WHERE guild_id = ?`,
		guildID,
	).Scan(&config.GuildID, &config.LogChannelID, &config.CreatedAt, &config.UpdatedAt)

	if err == sql.ErrNoRows {
		// Return default config if not found
		return &GuildConfig{
			GuildID:   guildID,
			CreatedAt: time.Now().Unix(),
			UpdatedAt: time.Now().Unix(),
		}, nil
	}

	if err != nil {
		return nil, err
	}

	return &config, nil
}

// UpsertGuildConfig creates or updates guild configuration
func (d *Database) UpsertGuildConfig(config *GuildConfig) error {
	config.UpdatedAt = time.Now().Unix()
	if config.CreatedAt == 0 {
		config.CreatedAt = time.Now().Unix()
	}

	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO guild_config (guild_id, log_channel_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		config.GuildID, config.LogChannelID, config.CreatedAt, config.UpdatedAt,
	)

	return err
}
