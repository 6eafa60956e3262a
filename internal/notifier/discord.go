package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"go-guildevents/internal/database"
	"go-guildevents/internal/logging"
	"go-guildevents/internal/models"
)

const (
	colorCreated = 0x57F287
	colorUpdated = 0xFEE75C
	colorDeleted = 0xED4245
)

// MessageSender is the part of *discordgo.Session the notifier needs.
type MessageSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelResolver returns the log channel configured for a guild, "" for none.
type ChannelResolver interface {
	LogChannel(guildID models.Snowflake) string
}

// Notifier posts scheduled event changes to each guild's log channel.
type Notifier struct {
	sender   MessageSender
	channels ChannelResolver
	async    bool
}

func New(sender MessageSender, channels ChannelResolver) *Notifier {
	return &Notifier{sender: sender, channels: channels, async: true}
}

func (n *Notifier) send(guildID models.Snowflake, embed *discordgo.MessageEmbed) {
	if n == nil || n.sender == nil || n.channels == nil {
		return
	}
	channelID := n.channels.LogChannel(guildID)
	if channelID == "" {
		return
	}

	deliver := func() {
		if _, err := n.sender.ChannelMessageSendEmbed(channelID, embed); err != nil {
			logging.Warn("[NOTIFIER] Failed to post to channel %s: %v", channelID, err)
		}
	}
	if n.async {
		go deliver()
		return
	}
	deliver()
}

func (n *Notifier) EventCreated(ev *models.ScheduledEvent) {
	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Starts",
			Value:  fmt.Sprintf("<t:%d:F>", ev.StartTime().Unix()),
			Inline: true,
		},
		{
			Name:   "Location",
			Value:  describeLocation(ev.Location()),
			Inline: true,
		},
	}
	if creatorID, ok := ev.CreatorID(); ok {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Created by",
			Value:  fmt.Sprintf("<@%s>", creatorID),
			Inline: true,
		})
	}

	n.send(ev.GuildID(), &discordgo.MessageEmbed{
		Title:       "Scheduled event created",
		Description: fmt.Sprintf("**%s**", ev.Name()),
		Color:       colorCreated,
		Fields:      fields,
		Footer:      footer(ev),
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

func (n *Notifier) EventUpdated(ev *models.ScheduledEvent, changes []models.FieldChange) {
	if len(changes) == 0 {
		return
	}

	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("`%s`: %s → %s",
			strings.TrimPrefix(c.Identifier, "guild_scheduled_event_"),
			orNone(database.FormatValue(c.Old)),
			orNone(database.FormatValue(c.New))))
	}

	n.send(ev.GuildID(), &discordgo.MessageEmbed{
		Title:       "Scheduled event updated",
		Description: fmt.Sprintf("**%s**\n%s", ev.Name(), strings.Join(lines, "\n")),
		Color:       colorUpdated,
		Footer:      footer(ev),
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

func (n *Notifier) EventDeleted(ev *models.ScheduledEvent) {
	n.send(ev.GuildID(), &discordgo.MessageEmbed{
		Title:       "Scheduled event deleted",
		Description: fmt.Sprintf("**%s**", ev.Name()),
		Color:       colorDeleted,
		Footer:      footer(ev),
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

func footer(ev *models.ScheduledEvent) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: "Event " + ev.ID().String()}
}

func describeLocation(l models.Location) string {
	switch loc := l.(type) {
	case models.StageLocation:
		return fmt.Sprintf("<#%s> (stage)", loc.Channel.ID)
	case models.VoiceLocation:
		return fmt.Sprintf("<#%s>", loc.Channel.ID)
	case models.ExternalLocation:
		return loc.Place
	default:
		return "Unknown"
	}
}

func orNone(s string) string {
	if s == "" {
		return "*none*"
	}
	return s
}

// DatabaseChannels resolves log channels from the guild_config table.
type DatabaseChannels struct {
	DB *database.Database
}

func (d DatabaseChannels) LogChannel(guildID models.Snowflake) string {
	if d.DB == nil {
		return ""
	}
	cfg, err := d.DB.GetGuildConfig(guildID.String())
	if err != nil {
		return ""
	}
	return cfg.LogChannelID
}
