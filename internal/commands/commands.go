package commands

import "github.com/bwmarrin/discordgo"

var manageEvents int64 = discordgo.PermissionManageEvents

// GetAllCommands returns all application commands
func GetAllCommands() []*discordgo.ApplicationCommand {
	eventOption := &discordgo.ApplicationCommandOption{
		Name:        "event",
		Description: "Scheduled event ID",
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    true,
	}
	reasonOption := &discordgo.ApplicationCommandOption{
		Name:        "reason",
		Description: "Audit log reason",
		Type:        discordgo.ApplicationCommandOptionString,
		Required:    false,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "events",
			Description:              "Inspect and manage scheduled events",
			DefaultMemberPermissions: &manageEvents,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "list",
					Description: "List the cached scheduled events of this server",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "interested",
					Description: "Show the users interested in an event",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options:     []*discordgo.ApplicationCommandOption{eventOption},
				},
				{
					Name:        "delete",
					Description: "Delete a scheduled event",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options:     []*discordgo.ApplicationCommandOption{eventOption, reasonOption},
				},
				{
					Name:        "status",
					Description: "Start, end or cancel a scheduled event",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						eventOption,
						{
							Name:        "status",
							Description: "New status",
							Type:        discordgo.ApplicationCommandOptionInteger,
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "Active", Value: 2},
								{Name: "Completed", Value: 3},
								{Name: "Canceled", Value: 4},
							},
						},
						reasonOption,
					},
				},
				{
					Name:        "history",
					Description: "Show recent scheduled event changes",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "logs",
					Description: "Set the channel that receives scheduled event changes",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        "channel",
							Description: "Channel to send logs to",
							Type:        discordgo.ApplicationCommandOptionChannel,
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "ping",
			Description: "Check Discord API latency and connection quality",
		},
	}
}
