// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// app builds the root command with the global flags shared by every subcommand.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "plbop",
		Usage:   "Refill a Spotify playlist with recommendations seeded from another playlist",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("PLBOP_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to a .env file with cid, secret, user and pl_add",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("PLBOP_LOG_LEVEL"),
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

// fillCommand runs the recommendation pipeline
func fillCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "fill",
		Usage: "Replace the destination playlist with fresh recommendations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Seed playlist ID, URL or URI",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Owner whose playlists count as already known (defaults to spotify.user, then the token owner)",
			},
			&cli.StringFlag{
				Name:  "dest",
				Usage: "Destination playlist ID, URL or URI (defaults to spotify.destination)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Select tracks without writing the destination playlist",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the selected tracks to a file",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format (txt, md, csv, json)",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Follow progress in a terminal UI",
			},
		},
		Action: r.Fill,
	}
}

// authCommand runs the OAuth2 authorization-code flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify using OAuth2 and store the tokens",
		Action: r.Auth,
	}
}

// playlistsCommand lists playlists to help find IDs
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List a user's Spotify playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "User whose playlists to list (defaults to spotify.user, then the token owner)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Playlists,
	}
}

// historyCommand reads the run journal
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded fill runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the run journal database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}
