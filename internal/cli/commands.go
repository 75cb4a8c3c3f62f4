// Package cli provides command definitions for tabsync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/tabsync/tabsync/internal/backup"
	"github.com/tabsync/tabsync/internal/config"
	"github.com/tabsync/tabsync/internal/engine"
	"github.com/tabsync/tabsync/internal/launcher"
	"github.com/tabsync/tabsync/internal/logging"
	"github.com/tabsync/tabsync/internal/meta"
	"github.com/tabsync/tabsync/internal/progress"
	"github.com/tabsync/tabsync/internal/remote"
	"github.com/tabsync/tabsync/internal/resolve"
	"github.com/tabsync/tabsync/internal/ui"
)

// strategyFlag lets individual sync commands override the configured
// conflict strategy for a single invocation.
func strategyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "strategy",
		Aliases: []string{"s"},
		Usage:   "Conflict strategy for this run (newest, oldest, local, cloud, merge, manual)",
	}
}

func pullCommand() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Reconcile the remote configuration into the local file",
		Flags: []cli.Flag{
			strategyFlag(),
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite the local file with the remote content, skipping classification",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			eng, err := buildEngine(cmd)
			if err != nil {
				return err
			}

			op := eng.Pull
			desc := "pulling configuration"
			if cmd.Bool("force") {
				op = eng.ForceDownload
				desc = "downloading configuration"
			}

			return reportResult(runWithSpinner(ctx, desc, op))
		},
	}
}

func pushCommand() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Reconcile the local configuration into the remote store",
		Flags: []cli.Flag{
			strategyFlag(),
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Replace the remote content with the local file, skipping classification",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			eng, err := buildEngine(cmd)
			if err != nil {
				return err
			}

			op := eng.Push
			desc := "pushing configuration"
			if cmd.Bool("force") {
				op = eng.ForceUpload
				desc = "uploading configuration"
			}

			return reportResult(runWithSpinner(ctx, desc, op))
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run a full pull-then-push reconciliation cycle",
		Description: `Reconcile both directions in one cycle: first the remote copy is
   pulled and classified against the local file, then any local changes
   are pushed back. The remote state fetched during the pull is reused
   for the push, so the cycle observes one consistent revision.

   Examples:
     tabsync sync
     tabsync sync --strategy merge`,
		Flags: []cli.Flag{
			strategyFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			eng, err := buildEngine(cmd)
			if err != nil {
				return err
			}

			return reportResult(runWithSpinner(ctx, "syncing configuration", eng.Sync))
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Sync, launch a program, and sync again when it exits",
		UsageText: "tabsync run [options] -- <command> [args...]",
		Description: `Pull the latest configuration, run the given program with inherited
   stdio, and push any configuration changes after it exits. A failed
   pull is reported but does not block the launch.

   Examples:
     tabsync run -- tabby
     tabsync run --strategy cloud -- tabby --no-sandbox`,
		Flags: []cli.Flag{
			strategyFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			argv := cmd.Args().Slice()
			if len(argv) == 0 {
				return errors.New("run requires a command to launch, e.g. tabsync run -- tabby")
			}

			eng, err := buildEngine(cmd)
			if err != nil {
				return err
			}

			return launcher.Run(ctx, eng, argv)
		},
	}
}

// buildEngine loads configuration and credentials and assembles a sync
// engine from them. A --strategy flag on cmd overrides the configured
// strategy for this invocation.
func buildEngine(cmd *cli.Command) (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if s := cmd.String("strategy"); s != "" {
		cfg.Sync.Strategy = s
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	backend, err := remote.New(remote.Options{
		Kind:        cfg.Remote.Kind,
		Timeout:     cfg.Remote.Timeout,
		MaxAttempts: cfg.Remote.MaxAttempts,
		Gist: remote.GistOptions{
			ID:       cfg.Remote.GistID,
			Token:    creds.GitHub.Token,
			Filename: cfg.Remote.GistFilename,
			OnCreate: func(id string) {
				cfg.Remote.GistID = id
				if err := cfg.Save(); err != nil {
					logging.Warn("failed to persist new gist id",
						slog.String("gist_id", id), logging.Err(err))
					fmt.Printf("%s\n", ui.StatusWarning(
						fmt.Sprintf("created gist %s but could not save it to config; add it to remote.gist_id manually", id)))
					return
				}
				fmt.Printf("%s\n", ui.StatusSuccess(fmt.Sprintf("created gist %s", id)))
			},
		},
		Bucket: remote.BucketOptions{
			Endpoint: cfg.Remote.Endpoint,
			Bucket:   cfg.Remote.Bucket,
			Key:      cfg.Remote.Key,
			Token:    creds.Bucket.Token,
		},
	})
	if err != nil {
		return nil, err
	}

	resolver, err := resolve.NewResolver(cfg.GetStrategy())
	if err != nil {
		return nil, err
	}

	return engine.New(engine.Options{
		ConfigPath:           cfg.Local.ConfigPath,
		Backend:              backend,
		Meta:                 meta.NewStore(cfg.Local.MetadataPath),
		Backups:              backup.NewManager(cfg.Backup.Location, cfg.Backup.MaxBackups),
		Resolver:             resolver,
		Manual:               NewConflictResolver(),
		EscalateMergeMarkers: cfg.Sync.MergeEscalates,
	})
}

// runWithSpinner wraps an engine operation with a progress spinner.
func runWithSpinner(ctx context.Context, desc string, op func(context.Context) (*engine.Result, error)) (*engine.Result, error) {
	spinner := progress.Start(desc)
	result, err := op(ctx)
	spinner.Finish()
	return result, err
}

// reportResult prints the cycle outcome and maps engine errors to
// user-facing messages.
func reportResult(result *engine.Result, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrManualDecisionRequired):
			return errors.New("conflict requires a manual decision; re-run interactively or choose a strategy with --strategy")
		case errors.Is(err, remote.ErrUnauthorized):
			return fmt.Errorf("authentication failed: %w (check %s)", err, config.CredentialsPath())
		default:
			return err
		}
	}

	fmt.Println(ui.StatusSuccess(result.Summary()))

	if result.Decision != nil && !result.Decision.Clean() {
		fmt.Println(ui.StatusWarning("some keys could not be merged automatically; local values were kept:"))
		for _, marker := range result.Decision.Markers {
			fmt.Printf("  - %s\n", marker)
		}
	}

	if result.Backup != nil {
		fmt.Printf("%s\n", ui.Dim("backup: "+result.Backup.ID))
	}

	return nil
}
