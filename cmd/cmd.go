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

// setupCommand initializes configuration, the database, and the default user.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create configuration, initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// migrateCommand handles schema migrations.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Database schema migrations",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply pending migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.MigrateUp,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.MigrateRollback,
			},
		},
	}
}

// serveCommand starts the HTTP API server with background workers.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind address (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// syncCommand triggers synchronization passes.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronise subscriptions with their remote feeds",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Synchronise every subscription",
			},
			&cli.StringFlag{
				Name:    "subscription",
				Aliases: []string{"s"},
				Usage:   "Subscription ID to synchronise",
			},
			&cli.StringFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Folder ID whose subscriptions (recursively) to synchronise",
			},
		},
		Action: r.Sync,
	}
}

// subscriptionCommand manages subscriptions.
func subscriptionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "subscription",
		Aliases: []string{"sub"},
		Usage:   "Manage subscriptions",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Subscribe to a channel, playlist, or feed URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "folder",
						Usage: "Parent folder ID",
					},
					&cli.BoolFlag{
						Name:  "sync",
						Usage: "Run a synchronization pass immediately after subscribing",
						Value: true,
					},
				},
				Action: r.SubscriptionAdd,
			},
			{
				Name:  "list",
				Usage: "List subscriptions",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SubscriptionList,
			},
			{
				Name:  "rm",
				Usage: "Delete a subscription and its videos",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.SubscriptionRemove,
			},
			{
				Name:  "export",
				Usage: "Export video listings to files",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:    "all",
						Aliases: []string{"a"},
						Usage:   "Export every subscription",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: json, csv, markdown, txt",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 5,
					},
				},
				Action: r.SubscriptionExport,
			},
		},
	}
}

// folderCommand manages the folder hierarchy.
func folderCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "folder",
		Usage: "Manage subscription folders",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a folder",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "parent",
						Usage: "Parent folder ID",
					},
				},
				Action: r.FolderAdd,
			},
			{
				Name:  "list",
				Usage: "List folders",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.FolderList,
			},
			{
				Name:  "mv",
				Usage: "Move a folder under a new parent",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "parent",
						Usage: "New parent folder ID (empty for top level)",
					},
				},
				Action: r.FolderMove,
			},
			{
				Name:  "rm",
				Usage: "Delete a folder",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "keep-subscriptions",
						Usage: "Detach subscriptions instead of deleting them",
					},
				},
				Action: r.FolderRemove,
			},
		},
	}
}

// videoCommand handles per-video actions.
func videoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "video",
		Usage: "Per-video actions",
		Commands: []*cli.Command{
			{
				Name:  "watch",
				Usage: "Mark a video as watched",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.VideoWatch,
			},
			{
				Name:  "unwatch",
				Usage: "Mark a video as not watched",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.VideoUnwatch,
			},
			{
				Name:  "download",
				Usage: "Download a single video now",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.VideoDownload,
			},
			{
				Name:  "rm-files",
				Usage: "Delete a video's downloaded files",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.VideoRemoveFiles,
			},
		},
	}
}

// downloadsCommand runs the download scheduler.
func downloadsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "downloads",
		Usage: "Download scheduling",
		Commands: []*cli.Command{
			{
				Name:  "process",
				Usage: "Select and download pending videos for every auto-download subscription",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "subscription",
						Aliases: []string{"s"},
						Usage:   "Limit to one subscription ID",
					},
				},
				Action: r.DownloadsProcess,
			},
		},
	}
}
