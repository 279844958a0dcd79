// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/unavoidables/internal/formatter"
	"github.com/desertthunder/unavoidables/internal/server"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent database migration",
				Action: r.RollbackDatabase,
			},
		},
	}
}

// spotifyCommand handles Spotify authorization.
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "auth",
				Usage: "Authenticate with Spotify using OAuth2",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: server.DefaultAuthTimeout,
					},
				},
				Action: r.SpotifyAuth,
			},
			{
				Name:   "status",
				Usage:  "Show the authorized user and the synchronized playlist",
				Action: r.SpotifyStatus,
			},
		},
	}
}

// scrapeCommand prints the parsed chart page.
func scrapeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scrape",
		Usage: "Fetch the chart page and print the parsed records",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "cached",
				Usage: "Read the cached page instead of fetching it",
			},
		}, jsonFlags()...),
		Action: r.Scrape,
	}
}

// runCommand is the full scheduled update.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Scrape, resolve new weeks, update the catalog and sync the playlist",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "cached",
				Usage: "Read the cached page instead of fetching it",
			},
			&cli.BoolFlag{
				Name:  "skip-sync",
				Usage: "Update the catalog without touching the playlist",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what the playlist sync would add without writing",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Exit with an error when any record failed or was rejected",
			},
		},
		Action: r.Run,
	}
}

// resolveCommand explains the match for one record.
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Search for a single track and show how every candidate scored",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "title",
				Aliases:  []string{"t"},
				Usage:    "Track title",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:     "artist",
				Aliases:  []string{"a"},
				Usage:    "Artist name, primary artist first (repeatable)",
				Required: true,
			},
		}, jsonFlags()...),
		Action: r.Resolve,
	}
}

// catalogCommand reads the stored catalog.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Inspect and export the stored catalog",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the catalog, most recent week first",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "unresolved",
						Usage: "Only show entries without an identifier",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries to print",
					},
				}, jsonFlags()...),
				Action: r.CatalogShow,
			},
			{
				Name:  "export",
				Usage: "Export the catalog (csv, markdown, txt, json)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format",
						Value:   formatter.FormatCSV,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path, - for stdout",
					},
				},
				Action: r.CatalogExport,
			},
		},
	}
}

// syncCommand pushes the stored catalog to the playlist.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Add missing catalog tracks to the playlist",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would be added without writing",
			},
		},
		Action: r.Sync,
	}
}

// historyCommand lists recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent runs",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to list",
				Value: 10,
			},
		}, jsonFlags()...),
		Action: r.History,
	}
}

// tuiCommand launches the interactive browser.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse the catalog interactively",
		Action: r.TUI,
	}
}
