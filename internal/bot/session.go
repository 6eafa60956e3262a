package bot

import (
	"fmt"
	"time"

	"go-guildevents/internal/logging"

	"github.com/bwmarrin/discordgo"
)

// Intents covers guild metadata, channels and scheduled events.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildScheduledEvents

type Session struct {
	discord *discordgo.Session
	token   string
	BotID   string
}

var globalSession *Session

// Initialize creates and initializes the Discord session
func Initialize(token string) error {
	s, err := NewSession(token)
	if err != nil {
		return err
	}
	globalSession = s
	return nil
}

func NewSession(token string) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	dg.Identify.Intents = Intents
	dg.StateEnabled = true
	// one dispatch at a time, in gateway order
	dg.SyncEvents = true

	return &Session{
		discord: dg,
		token:   token,
	}, nil
}

// GetSession returns the global Discord session
func GetSession() *Session {
	return globalSession
}

// GetDiscord returns the underlying discordgo session
func (s *Session) GetDiscord() *discordgo.Session {
	return s.discord
}

// LastHeartbeatAck is when the gateway last acknowledged a heartbeat.
func (s *Session) LastHeartbeatAck() time.Time {
	s.discord.RLock()
	defer s.discord.RUnlock()
	return s.discord.LastHeartbeatAck
}

// Connect opens the Discord websocket connection
func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	if s.discord.State.User != nil {
		s.BotID = s.discord.State.User.ID
		logging.Info("Bot ID: %s", s.BotID)
	}

	logging.Info("Discord bot connected successfully")
	return nil
}

// Close closes the Discord connection
func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}

// RegisterCommands replaces the application's global commands with
// commands in one call, so removed commands disappear too.
func (s *Session) RegisterCommands(commands []*discordgo.ApplicationCommand) error {
	if s.discord.State.User == nil {
		return fmt.Errorf("register commands: session not connected")
	}
	logging.Info("Registering %d slash commands...", len(commands))

	registered, err := s.discord.ApplicationCommandBulkOverwrite(s.discord.State.User.ID, "", commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	for _, cmd := range registered {
		logging.Debug("Registered command: /%s (%s)", cmd.Name, cmd.ID)
	}
	return nil
}

// AddHandler adds an event handler to the Discord session
func (s *Session) AddHandler(handler interface{}) {
	s.discord.AddHandler(handler)
}
