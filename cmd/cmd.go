// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/moodtunes/internal/formatter"
	"github.com/urfave/cli/v3"
)

var formatUsage = "Export format (" + strings.Join(formatter.Formats, ", ") + ")"

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "rollback", Usage: "Revert the most recent migration instead"},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles sign-in with the configured OAuth2 provider
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage sign-in",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in through the browser",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out the current user",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// detectCommand submits one image for emotion detection and recommendations
func detectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "detect",
		Usage: "Detect the emotion in a photo and recommend tracks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Path to an image file",
			},
			&cli.BoolFlag{
				Name:  "camera",
				Usage: "Capture a frame from the default camera",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.IntFlag{
				Name:  "play",
				Usage: "Play the preview of the track at this index (0-based)",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: formatUsage,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for exported files",
				Value:   ".",
			},
		},
		Action: r.Detect,
	}
}

// historyCommand browses stored detections
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse past detections",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent detections",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of detections to return",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "emotion",
						Usage: "Only show detections with this emotion",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show the tracks of a detection",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "export",
				Usage: "Export a detection to files",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   formatUsage,
						Value:   formatter.FormatCSV,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
						Value:   ".",
					},
				},
				Action: r.HistoryExport,
			},
		},
	}
}

// playCommand plays a preview from a stored detection
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a track preview from a past detection",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "index",
				Usage: "Track index (0-based, clamped to the list)",
			},
		},
		Action: r.Play,
	}
}

// batchCommand detects many images at once
func batchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "Detect and export recommendations for many images",
		ArgsUsage: "IMAGE...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   formatUsage,
				Value:   formatter.FormatJSON,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: moodtunes_batch_{timestamp})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent requests",
				Value: 2,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Images submitted per second",
				Value: 2,
			},
		},
		Action: r.Batch,
	}
}

// statusCommand checks that the backend is reachable
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Check the detection service",
		Action: r.Status,
	}
}

// tuiCommand returns the top-level TUI command for the interactive dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive dashboard",
		Action:  r.TUI,
	}
}
