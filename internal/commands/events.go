package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-guildevents/internal/database"
	"go-guildevents/internal/dispatcher"
	"go-guildevents/internal/models"

	"github.com/bwmarrin/discordgo"
)

const (
	embedColor     = 0x2B2D31
	maxListedItems = 20
)

func (h *Handler) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	guildID, err := models.ParseSnowflake(i.GuildID)
	if err != nil {
		return err
	}
	return respondEmbed(s, i, listEmbed(h.store.ScheduledEvents(guildID)), false)
}

func listEmbed(events []*models.ScheduledEvent) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "Scheduled Events",
		Color:     embedColor,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if len(events) == 0 {
		embed.Description = "No scheduled events are known for this server."
		return embed
	}

	for n, ev := range events {
		if n == maxListedItems {
			embed.Footer = &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("%d more not shown", len(events)-maxListedItems),
			}
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (%s)", ev.Name(), ev.Status()),
			Value: eventSummary(ev),
		})
	}
	return embed
}

func eventSummary(ev *models.ScheduledEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<t:%d:F>", ev.StartTime().Unix())
	if end, ok := ev.EndTime(); ok {
		fmt.Fprintf(&b, " until <t:%d:t>", end.Unix())
	}
	switch loc := ev.Location().(type) {
	case models.StageLocation, models.VoiceLocation:
		fmt.Fprintf(&b, " in <#%s>", loc.String())
	case models.ExternalLocation:
		fmt.Fprintf(&b, " at %s", loc.Place)
	}
	if n := ev.InterestedUserCount(); n != models.UnknownInterestedCount {
		fmt.Fprintf(&b, "\n%d interested", n)
	}
	fmt.Fprintf(&b, "\nID `%s`", ev.ID())
	return b.String()
}

// lookupEvent resolves the "event" option against the cache.
func (h *Handler) lookupEvent(i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (*models.ScheduledEvent, error) {
	guildID, err := models.ParseSnowflake(i.GuildID)
	if err != nil {
		return nil, err
	}
	opt, ok := opts["event"]
	if !ok {
		return nil, fmt.Errorf("missing event option")
	}
	eventID, err := models.ParseSnowflake(strings.TrimSpace(opt.StringValue()))
	if err != nil {
		return nil, fmt.Errorf("%q is not an event ID", opt.StringValue())
	}
	ev := h.store.ScheduledEvent(guildID, eventID)
	if ev == nil {
		return nil, fmt.Errorf("no scheduled event %s in this server", eventID)
	}
	return ev, nil
}

func (h *Handler) handleInterested(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	ev, err := h.lookupEvent(i, optionMap(sub))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	users, err := h.facade.RetrieveInterestedUsers(ev).Next(ctx)
	if err != nil {
		return describeActionError(err)
	}
	return respondEmbed(s, i, interestedEmbed(ev, users), true)
}

func interestedEmbed(ev *models.ScheduledEvent, users []*models.User) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Interested in %s", ev.Name()),
		Color: embedColor,
	}
	if len(users) == 0 {
		embed.Description = "Nobody yet."
		return embed
	}

	mentions := make([]string, 0, len(users))
	for _, u := range users {
		mentions = append(mentions, fmt.Sprintf("<@%s>", u.ID))
	}
	embed.Description = strings.Join(mentions, " ")
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d users", len(users))}
	return embed
}

func (h *Handler) handleDelete(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	if !memberCanManageEvents(i) {
		respondPermissionError(s, i, "You need the Manage Events permission.")
		return nil
	}

	opts := optionMap(sub)
	ev, err := h.lookupEvent(i, opts)
	if err != nil {
		return err
	}

	action, err := h.facade.Delete(ev)
	if err != nil {
		return describeActionError(err)
	}
	if reason, ok := opts["reason"]; ok {
		action.Reason(reason.StringValue())
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := action.Complete(ctx); err != nil {
		return describeActionError(err)
	}

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Scheduled event deleted",
		Description: fmt.Sprintf("**%s** was deleted.", ev.Name()),
		Color:       embedColor,
	}, true)
}

func (h *Handler) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	if !memberCanManageEvents(i) {
		respondPermissionError(s, i, "You need the Manage Events permission.")
		return nil
	}

	opts := optionMap(sub)
	ev, err := h.lookupEvent(i, opts)
	if err != nil {
		return err
	}
	statusOpt, ok := opts["status"]
	if !ok {
		return fmt.Errorf("missing status option")
	}
	next := models.StatusFromKey(int(statusOpt.IntValue()))

	manager := h.facade.Manager(ev).
		CurrentStatus(ev.Status()).
		SetStatus(next)
	if reason, ok := opts["reason"]; ok {
		manager.Reason(reason.StringValue())
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if _, err := manager.Complete(ctx); err != nil {
		return describeActionError(err)
	}

	return respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Scheduled event updated",
		Description: fmt.Sprintf("**%s**: %s → %s", ev.Name(), ev.Status(), next),
		Color:       embedColor,
	}, true)
}

func (h *Handler) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if h.db == nil {
		return fmt.Errorf("database connection not available")
	}
	guildID, err := models.ParseSnowflake(i.GuildID)
	if err != nil {
		return err
	}
	changes, err := h.db.RecentChanges(guildID, maxListedItems)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}
	return respondEmbed(s, i, historyEmbed(changes), true)
}

func historyEmbed(changes []*database.ChangeRecord) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Recent Scheduled Event Changes",
		Color: embedColor,
	}
	if len(changes) == 0 {
		embed.Description = "No changes recorded yet."
		return embed
	}

	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("<t:%d:R> `%s` %s: %s → %s",
			c.ChangedAt/1000,
			c.EventID,
			strings.TrimPrefix(c.Field, "guild_scheduled_event_"),
			valueOrNone(c.OldValue),
			valueOrNone(c.NewValue)))
	}
	embed.Description = strings.Join(lines, "\n")
	return embed
}

func valueOrNone(s string) string {
	if s == "" {
		return "*none*"
	}
	return s
}

// describeActionError turns local and remote failures into messages a
// server admin can act on.
func describeActionError(err error) error {
	var remote *dispatcher.RemoteError
	switch {
	case errors.Is(err, models.ErrInsufficientPermission):
		return fmt.Errorf("the bot is missing the Manage Events permission")
	case errors.Is(err, models.ErrInvalidArgument):
		return err
	case errors.Is(err, dispatcher.ErrRateLimited):
		return fmt.Errorf("rate limited by Discord, try again shortly")
	case errors.As(err, &remote) && remote.IsNotFound():
		return fmt.Errorf("the event no longer exists")
	case errors.As(err, &remote) && remote.IsForbidden():
		return fmt.Errorf("discord refused the request: %s", remote.Message)
	default:
		return err
	}
}
