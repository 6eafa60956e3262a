package models

import "time"

// Guild is the community that owns scheduled events. Events hold a
// back-reference and never own it.
type Guild struct {
	ID      Snowflake
	Name    string
	OwnerID Snowflake
}

func (g *Guild) Equal(other *Guild) bool {
	if g == nil || other == nil {
		return g == other
	}
	return g.ID == other.ID
}

type User struct {
	ID         Snowflake
	Username   string
	GlobalName string
	Bot        bool
}

type Member struct {
	User     *User
	GuildID  Snowflake
	Nick     string
	RoleIDs  []Snowflake
	JoinedAt time.Time
}

// GuildChannel is implemented by the channel kinds an event can be hosted in.
type GuildChannel interface {
	ChannelID() Snowflake
	ChannelGuildID() Snowflake
	ChannelName() string
}

type StageChannel struct {
	ID      Snowflake
	GuildID Snowflake
	Name    string
}

func (c *StageChannel) ChannelID() Snowflake      { return c.ID }
func (c *StageChannel) ChannelGuildID() Snowflake { return c.GuildID }
func (c *StageChannel) ChannelName() string       { return c.Name }

type VoiceChannel struct {
	ID      Snowflake
	GuildID Snowflake
	Name    string
}

func (c *VoiceChannel) ChannelID() Snowflake      { return c.ID }
func (c *VoiceChannel) ChannelGuildID() Snowflake { return c.GuildID }
func (c *VoiceChannel) ChannelName() string       { return c.Name }
