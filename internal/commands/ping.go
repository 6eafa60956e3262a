package commands

import (
	"fmt"
	"time"

	"go-guildevents/internal/models"

	"github.com/bwmarrin/discordgo"
)

// handlePing reports gateway and REST latency plus what the cache holds
// for the invoking guild.
func (h *Handler) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return err
	}

	apiStart := time.Now()
	_, err = s.Channel(i.ChannelID)
	apiLatency := time.Since(apiStart)
	if err != nil {
		apiLatency = -1
	}

	cached := 0
	if guildID, err := models.ParseSnowflake(i.GuildID); err == nil {
		cached = len(h.store.ScheduledEvents(guildID))
	}

	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{pingEmbed(s.HeartbeatLatency(), apiLatency, cached)},
	})
	return err
}

func pingEmbed(gateway, api time.Duration, cachedEvents int) *discordgo.MessageEmbed {
	apiValue := "`unavailable`"
	worst := gateway
	if api >= 0 {
		apiValue = fmt.Sprintf("`%dms`", api.Milliseconds())
		if api > worst {
			worst = api
		}
	}

	return &discordgo.MessageEmbed{
		Title: "Pong!",
		Color: latencyColor(worst),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Gateway", Value: fmt.Sprintf("`%dms`", gateway.Milliseconds()), Inline: true},
			{Name: "REST", Value: apiValue, Inline: true},
			{Name: "Cached events", Value: fmt.Sprintf("`%d`", cachedEvents), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func latencyColor(d time.Duration) int {
	switch {
	case d < 60*time.Millisecond:
		return 0x57F287 // Green
	case d < 150*time.Millisecond:
		return 0xFEE75C // Yellow
	default:
		return 0xED4245 // Red
	}
}
