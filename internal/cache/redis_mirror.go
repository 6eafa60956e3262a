package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	goredis "github.com/redis/go-redis/v9"

	"go-guildevents/internal/models"
)

const mirrorPrefix = "guildevents:"

// RedisMirror keeps a JSON snapshot of every cached event in redis so other
// processes can read the schedule without a gateway connection.
type RedisMirror struct {
	rdb *goredis.Client
	ttl time.Duration
}

type mirrorRecord struct {
	Event      *discordgo.GuildScheduledEvent `json:"event"`
	Interested *int                           `json:"interested,omitempty"`
	UpdatedAt  time.Time                      `json:"updated_at"`
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewRedisMirror(rdb *goredis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{rdb: rdb, ttl: ttl}
}

func (m *RedisMirror) key(guildID, id models.Snowflake) string {
	return mirrorPrefix + guildID.String() + ":" + id.String()
}

func (m *RedisMirror) Put(ctx context.Context, ev *models.ScheduledEvent) error {
	p := models.EncodePayload(ev)
	data, err := json.Marshal(mirrorRecord{
		Event:      p.GuildScheduledEvent,
		Interested: p.UserCount,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode mirror record: %w", err)
	}
	return m.rdb.Set(ctx, m.key(ev.GuildID(), ev.ID()), data, m.ttl).Err()
}

// Get returns the mirrored payload, or nil when the key is absent.
func (m *RedisMirror) Get(ctx context.Context, guildID, id models.Snowflake) (*models.Payload, error) {
	data, err := m.rdb.Get(ctx, m.key(guildID, id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec mirrorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode mirror record: %w", err)
	}
	if rec.Event == nil {
		return nil, fmt.Errorf("mirror record %s: no event", m.key(guildID, id))
	}
	return &models.Payload{GuildScheduledEvent: rec.Event, UserCount: rec.Interested}, nil
}

func (m *RedisMirror) Delete(ctx context.Context, guildID, id models.Snowflake) error {
	return m.rdb.Del(ctx, m.key(guildID, id)).Err()
}

// Keys lists the mirrored event ids of a guild.
func (m *RedisMirror) Keys(ctx context.Context, guildID models.Snowflake) ([]models.Snowflake, error) {
	prefix := mirrorPrefix + guildID.String() + ":"
	var ids []models.Snowflake

	iter := m.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id, err := models.ParseSnowflake(iter.Val()[len(prefix):])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteGuild drops every mirrored event of a guild.
func (m *RedisMirror) DeleteGuild(ctx context.Context, guildID models.Snowflake) error {
	ids, err := m.Keys(ctx, guildID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = m.key(guildID, id)
	}
	return m.rdb.Del(ctx, keys...).Err()
}

func (m *RedisMirror) Close() error {
	return m.rdb.Close()
}
