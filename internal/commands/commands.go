package commands

import "github.com/bwmarrin/discordgo"

var adminPermission int64 = discordgo.PermissionAdministrator

// GetCommands returns all slash command definitions
func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		// Playback commands
		{
			Name:        "play",
			Description: "Play a song from a URL or search query",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "URL or search query",
					Required:    true,
				},
			},
		},
		{
			Name:        "pause",
			Description: "Pause the current playback",
		},
		{
			Name:        "resume",
			Description: "Resume paused playback",
		},
		{
			Name:        "skip",
			Description: "Skip the current song",
		},
		{
			Name:        "stop",
			Description: "Stop playback and clear the queue",
		},

		// Queue commands
		{
			Name:        "queue",
			Description: "Display the current song queue",
		},
		{
			Name:        "nowplaying",
			Description: "Show information about the currently playing song",
		},
		{
			Name:        "clear",
			Description: "Clear the queue, keeping the current song",
		},
		{
			Name:        "history",
			Description: "Show recently played songs",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "clear",
					Description: "Erase this server's play history",
				},
			},
		},

		// Utility commands
		{
			Name:        "join",
			Description: "Join your current voice channel",
		},
		{
			Name:        "leave",
			Description: "Leave voice channel and clear all state",
		},
		{
			Name:        "stats",
			Description: "Display bot statistics and status",
		},
		{
			Name:        "help",
			Description: "Show all available commands and usage",
		},
		{
			Name:        "sync",
			Description: "[Admin] Force synchronize slash commands with Discord",

			DefaultMemberPermissions: &adminPermission,
		},
	}
}
