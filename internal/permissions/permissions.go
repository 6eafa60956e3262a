package permissions

import (
	"sync"

	"github.com/bwmarrin/discordgo"

	"go-guildevents/internal/models"
)

// AllPermissions is what the guild owner and administrators hold. Every
// bit is set: discordgo.PermissionAll stops short of newer flags such as
// PermissionManageEvents.
const AllPermissions int64 = ^int64(0)

// StateSnapshot answers permission questions for the bot user from the
// gateway state. A guild that is not in the state has no permissions.
type StateSnapshot struct {
	state  *discordgo.State
	selfID string
}

func NewStateSnapshot(state *discordgo.State, selfID string) *StateSnapshot {
	return &StateSnapshot{state: state, selfID: selfID}
}

// SetSelf records the bot user id once the session is ready.
func (s *StateSnapshot) SetSelf(selfID string) {
	s.selfID = selfID
}

func (s *StateSnapshot) HasGuildPermission(guildID models.Snowflake, perm int64) bool {
	return s.GuildPermissions(guildID)&perm == perm
}

// GuildPermissions computes the guild-level permission set of the bot:
// owner or Administrator means everything, otherwise @everyone OR'd with
// every role the member holds.
func (s *StateSnapshot) GuildPermissions(guildID models.Snowflake) int64 {
	if s.state == nil || s.selfID == "" {
		return 0
	}

	guild, err := s.state.Guild(guildID.String())
	if err != nil {
		return 0
	}
	if guild.OwnerID == s.selfID {
		return AllPermissions
	}

	member, err := s.state.Member(guild.ID, s.selfID)
	if err != nil {
		return 0
	}
	return computeBase(guild, member.Roles)
}

func computeBase(guild *discordgo.Guild, roleIDs []string) int64 {
	held := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = struct{}{}
	}

	var perms int64
	for _, role := range guild.Roles {
		// @everyone shares the guild id
		if role.ID == guild.ID {
			perms |= role.Permissions
			continue
		}
		if _, ok := held[role.ID]; ok {
			perms |= role.Permissions
		}
	}

	if perms&discordgo.PermissionAdministrator != 0 {
		return AllPermissions
	}
	return perms
}

// Static is a fixed permission table, for tools that run without a
// gateway connection.
type Static struct {
	mu     sync.RWMutex
	guilds map[models.Snowflake]int64
}

func NewStatic() *Static {
	return &Static{guilds: make(map[models.Snowflake]int64)}
}

func (s *Static) Grant(guildID models.Snowflake, perm int64) {
	s.mu.Lock()
	s.guilds[guildID] |= perm
	s.mu.Unlock()
}

func (s *Static) Revoke(guildID models.Snowflake, perm int64) {
	s.mu.Lock()
	s.guilds[guildID] &^= perm
	s.mu.Unlock()
}

func (s *Static) HasGuildPermission(guildID models.Snowflake, perm int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guilds[guildID]&perm == perm
}
