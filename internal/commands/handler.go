package commands

import (
	"fmt"
	"time"

	"go-guildevents/internal/actions"
	"go-guildevents/internal/bot"
	"go-guildevents/internal/cache"
	"go-guildevents/internal/database"
	"go-guildevents/internal/logging"

	"github.com/bwmarrin/discordgo"
)

const actionTimeout = 10 * time.Second

// Handler manages all command interactions
type Handler struct {
	session *bot.Session
	store   *cache.Store
	facade  *actions.Facade
	db      *database.Database
}

var globalHandler *Handler

// Initialize creates the command handler and registers the commands.
func Initialize(session *bot.Session, store *cache.Store, facade *actions.Facade, db *database.Database) error {
	globalHandler = &Handler{
		session: session,
		store:   store,
		facade:  facade,
		db:      db,
	}

	session.AddHandler(globalHandler.handleInteraction)

	commands := GetAllCommands()
	if err := session.RegisterCommands(commands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	logging.Info("Command handler initialized with %d commands", len(commands))
	return nil
}

func (h *Handler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	h.handleCommand(s, i)
}

// handleCommand routes slash commands to their handlers
func (h *Handler) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	var err error
	switch data.Name {
	case "events":
		if i.GuildID == "" {
			err = fmt.Errorf("this command only works inside a server")
			break
		}
		if len(data.Options) == 0 {
			err = fmt.Errorf("missing subcommand")
			break
		}
		sub := data.Options[0]
		switch sub.Name {
		case "list":
			err = h.handleList(s, i)
		case "interested":
			err = h.handleInterested(s, i, sub)
		case "delete":
			err = h.handleDelete(s, i, sub)
		case "status":
			err = h.handleStatus(s, i, sub)
		case "history":
			err = h.handleHistory(s, i)
		case "logs":
			err = h.handleLogsEnable(s, i, sub)
		default:
			err = fmt.Errorf("unknown subcommand: %s", sub.Name)
		}
	case "ping":
		err = h.handlePing(s, i)
	default:
		err = fmt.Errorf("unknown command: %s", data.Name)
	}

	if err != nil {
		logging.Error("Command error [%s]: %v", data.Name, err)
		respondError(s, i, err.Error())
	}
}

// respondError sends an ephemeral error message
func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❌ Error: %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// optionMap indexes a subcommand's options by name.
func optionMap(sub *discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, opt := range sub.Options {
		m[opt.Name] = opt
	}
	return m
}
