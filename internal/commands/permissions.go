package commands

import (
	"github.com/bwmarrin/discordgo"
)

const requiredMemberPermissions = discordgo.PermissionAdministrator | discordgo.PermissionManageEvents

// memberCanManageEvents checks the invoking member. Interaction payloads
// carry the member's resolved permissions, so no state lookup is needed.
func memberCanManageEvents(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&requiredMemberPermissions != 0
}

func respondPermissionError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Access Denied",
		Description: message,
		Color:       0xED4245,
	}, true)
}
