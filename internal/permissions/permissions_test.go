package permissions

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-guildevents/internal/models"
)

const (
	guildID = "100"
	botID   = "200"
)

func newState(t *testing.T, ownerID string, roles []*discordgo.Role, memberRoles []string) *discordgo.State {
	t.Helper()

	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID:      guildID,
		OwnerID: ownerID,
		Roles:   roles,
	}))
	require.NoError(t, state.MemberAdd(&discordgo.Member{
		GuildID: guildID,
		User:    &discordgo.User{ID: botID},
		Roles:   memberRoles,
	}))
	return state
}

func TestStateSnapshot(t *testing.T) {
	guild := models.Snowflake(100)

	t.Run("owner_has_everything", func(t *testing.T) {
		snap := NewStateSnapshot(newState(t, botID, nil, nil), botID)
		assert.True(t, snap.HasGuildPermission(guild, discordgo.PermissionManageEvents))
	})

	t.Run("administrator_role", func(t *testing.T) {
		state := newState(t, "1", []*discordgo.Role{
			{ID: guildID},
			{ID: "300", Permissions: discordgo.PermissionAdministrator},
		}, []string{"300"})
		snap := NewStateSnapshot(state, botID)
		assert.True(t, snap.HasGuildPermission(guild, discordgo.PermissionManageEvents))
	})

	t.Run("owner_and_admin_cover_newer_flags", func(t *testing.T) {
		snap := NewStateSnapshot(newState(t, botID, nil, nil), botID)
		assert.Equal(t, AllPermissions, snap.GuildPermissions(guild))

		state := newState(t, "1", []*discordgo.Role{
			{ID: guildID, Permissions: discordgo.PermissionAdministrator},
		}, nil)
		admin := NewStateSnapshot(state, botID)
		for _, perm := range []int64{
			discordgo.PermissionManageEvents,
			discordgo.PermissionManageThreads,
			discordgo.PermissionModerateMembers,
		} {
			assert.True(t, admin.HasGuildPermission(guild, perm), "perm %#x", perm)
		}
	})

	t.Run("everyone_role_grants", func(t *testing.T) {
		state := newState(t, "1", []*discordgo.Role{
			{ID: guildID, Permissions: discordgo.PermissionManageEvents},
		}, nil)
		snap := NewStateSnapshot(state, botID)
		assert.True(t, snap.HasGuildPermission(guild, discordgo.PermissionManageEvents))
	})

	t.Run("role_not_held", func(t *testing.T) {
		state := newState(t, "1", []*discordgo.Role{
			{ID: guildID},
			{ID: "300", Permissions: discordgo.PermissionManageEvents},
		}, nil)
		snap := NewStateSnapshot(state, botID)
		assert.False(t, snap.HasGuildPermission(guild, discordgo.PermissionManageEvents))
	})

	t.Run("unknown_guild", func(t *testing.T) {
		snap := NewStateSnapshot(newState(t, botID, nil, nil), botID)
		assert.False(t, snap.HasGuildPermission(models.Snowflake(999), discordgo.PermissionManageEvents))
	})

	t.Run("self_not_set", func(t *testing.T) {
		snap := NewStateSnapshot(newState(t, botID, nil, nil), "")
		assert.False(t, snap.HasGuildPermission(guild, discordgo.PermissionManageEvents))
	})
}

func TestStatic(t *testing.T) {
	s := NewStatic()
	guild := models.Snowflake(1)

	assert.False(t, s.HasGuildPermission(guild, discordgo.PermissionManageEvents))

	s.Grant(guild, discordgo.PermissionManageEvents)
	assert.True(t, s.HasGuildPermission(guild, discordgo.PermissionManageEvents))

	s.Revoke(guild, discordgo.PermissionManageEvents)
	assert.False(t, s.HasGuildPermission(guild, discordgo.PermissionManageEvents))
}
