// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// downloadCommand acquires one or more playlists into the download directory
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"dl"},
		Usage:     "Download every track of one or more playlists as MP3",
		ArgsUsage: "<playlist-url> [playlist-url...]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"o"},
				Usage:   "Download directory (overrides download.dir)",
			},
			&cli.IntFlag{
				Name:  "delay-ms",
				Usage: "Pause after each fetch attempt in milliseconds (overrides download.delay_ms)",
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "Extra fetch attempts per track (overrides download.retries)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent playlist fetches when several URLs are given",
				Value: 3,
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a run report to this path",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Report format: csv, markdown, txt or json",
				Value: "markdown",
			},
		},
		Action: r.Download,
	}
}

// serveCommand runs the HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve playlist downloads over HTTP as zip archives",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port and PORT)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles config & database initialization
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage: "Write config.toml from the template and initialize the history database",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Revert the most recently applied schema migration",
			},
		},
		Action: r.Setup,
	}
}

// historyCommand lists recent acquisitions
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent track outcomes from the history database",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of rows",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "run",
				Usage: "Only show outcomes of this run id",
			},
			&cli.StringFlag{
				Name:  "track",
				Usage: "Only show attempts for this track key (\"Artist - Title\")",
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Show a single outcome by id",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// ledgerCommand inspects and edits the dedup ledger
func ledgerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Inspect or edit the list of already downloaded tracks",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List every recorded track key",
				Flags:  []cli.Flag{configFlag()},
				Action: r.LedgerList,
			},
			{
				Name:      "forget",
				Usage:     "Remove a track key so the next run downloads it again",
				ArgsUsage: "<artist - title>",
				Flags:     []cli.Flag{configFlag()},
				Action:    r.LedgerForget,
			},
		},
	}
}
