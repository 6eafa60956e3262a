package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// handleLogsEnable handles /events logs
func (h *Handler) handleLogsEnable(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	if !memberCanManageEvents(i) {
		respondPermissionError(s, i, "You need the Manage Events permission.")
		return nil
	}
	if h.db == nil {
		return fmt.Errorf("database connection not available")
	}

	opt, ok := optionMap(sub)["channel"]
	if !ok {
		return fmt.Errorf("missing channel option")
	}
	channelID := opt.ChannelValue(s).ID

	config, err := h.db.GetGuildConfig(i.GuildID)
	if err != nil {
		return err
	}

	config.LogChannelID = channelID
	if err := h.db.UpsertGuildConfig(config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Send test message to the log channel
	testEmbed := &discordgo.MessageEmbed{
		Title:       "✅ Scheduled Event Logging Enabled",
		Description: "This channel will now receive scheduled event changes",
		Color:       0x57F287, // Green
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "📊 Log Format",
				Value:  "Each log will include:\n• Created, updated and deleted events\n• The fields that changed\n• Old and new values",
				Inline: false,
			},
		},
	}

	_, err = s.ChannelMessageSendEmbed(channelID, testEmbed)
	if err != nil {
		return fmt.Errorf("failed to send test message (check bot permissions): %w", err)
	}

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "✅ Log Channel Configured",
		Description: fmt.Sprintf("Scheduled event logs will be sent to <#%s>", channelID),
		Color:       0x57F287, // Green
	}, true)
}
