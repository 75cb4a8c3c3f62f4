package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tabsync/tabsync/internal/backup"
	"github.com/tabsync/tabsync/internal/config"
	"github.com/tabsync/tabsync/internal/ui"
	"github.com/tabsync/tabsync/internal/ui/tui"
	"github.com/tabsync/tabsync/internal/util"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Manage local configuration backups",
		Commands: []*cli.Command{
			backupListCommand(),
			backupBrowseCommand(),
			backupRestoreCommand(),
			backupVerifyCommand(),
			backupDeleteCommand(),
		},
	}
}

func backupListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List backups, newest first",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mgr, _, err := buildBackupManager()
			if err != nil {
				return err
			}

			records, err := mgr.List()
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No backups found.")
				return nil
			}

			fmt.Printf("%-25s %-20s %-14s %s\n", "ID", "CREATED", "HASH", "SIZE")
			for _, rec := range records {
				fmt.Printf("%-25s %-20s %-14s %d\n",
					rec.ID,
					rec.CreatedAt.Format("2006-01-02 15:04:05"),
					shortHash(rec.SourceHash),
					rec.Size,
				)
			}
			return nil
		},
	}
}

func backupBrowseCommand() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse backups interactively",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mgr, cfg, err := buildBackupManager()
			if err != nil {
				return err
			}

			records, err := mgr.List()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No backups found.")
				return nil
			}

			final, err := tui.Run(tui.NewBackupList(records))
			if err != nil {
				return err
			}

			model, ok := final.(tui.BackupListModel)
			if !ok {
				return fmt.Errorf("unexpected list model %T", final)
			}

			result := model.Result()
			switch result.Action {
			case tui.ActionRestore:
				return restoreBackup(mgr, cfg, result.Record.ID)
			case tui.ActionVerify:
				return verifyBackup(mgr, result.Record.ID)
			case tui.ActionDelete:
				if err := mgr.Delete(result.Record.ID); err != nil {
					return err
				}
				fmt.Println(ui.StatusSuccess("deleted backup " + result.Record.ID))
				return nil
			default:
				return nil
			}
		},
	}
}

func backupRestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore a backup over the local configuration",
		UsageText: "tabsync backup restore <backup-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the backup content to this path instead of the configuration file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := backupIDArg(cmd)
			if err != nil {
				return err
			}

			mgr, cfg, err := buildBackupManager()
			if err != nil {
				return err
			}

			if out := cmd.String("output"); out != "" {
				content, err := mgr.Restore(id)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, content, 0o644); err != nil {
					return err
				}
				fmt.Println(ui.StatusSuccess(fmt.Sprintf("wrote backup %s to %s", id, out)))
				return nil
			}

			return restoreBackup(mgr, cfg, id)
		},
	}
}

func backupVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify a backup's content against its recorded hash",
		UsageText: "tabsync backup verify <backup-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := backupIDArg(cmd)
			if err != nil {
				return err
			}

			mgr, _, err := buildBackupManager()
			if err != nil {
				return err
			}

			return verifyBackup(mgr, id)
		},
	}
}

func backupDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a backup",
		UsageText: "tabsync backup delete <backup-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := backupIDArg(cmd)
			if err != nil {
				return err
			}

			mgr, _, err := buildBackupManager()
			if err != nil {
				return err
			}

			if err := mgr.Delete(id); err != nil {
				return err
			}
			fmt.Println(ui.StatusSuccess("deleted backup " + id))
			return nil
		},
	}
}

// buildBackupManager loads config and returns the backup manager with it.
func buildBackupManager() (*backup.Manager, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return backup.NewManager(cfg.Backup.Location, cfg.Backup.MaxBackups), cfg, nil
}

// backupIDArg extracts the required backup id argument.
func backupIDArg(cmd *cli.Command) (string, error) {
	args := cmd.Args()
	if args.Len() != 1 {
		return "", errors.New("expected exactly one argument: <backup-id>")
	}
	return args.Get(0), nil
}

// restoreBackup writes a verified backup over the local configuration,
// snapshotting the current content first so the restore itself is
// reversible.
func restoreBackup(mgr *backup.Manager, cfg *config.Config, id string) error {
	content, err := mgr.Restore(id)
	if err != nil {
		return err
	}

	if current, err := os.ReadFile(cfg.Local.ConfigPath); err == nil {
		if _, err := mgr.Snapshot(current); err != nil {
			return fmt.Errorf("failed to back up current configuration: %w", err)
		}
	}

	if err := util.WriteFileAtomic(cfg.Local.ConfigPath, content, 0o644); err != nil {
		return err
	}

	fmt.Println(ui.StatusSuccess(fmt.Sprintf("restored backup %s to %s", id, cfg.Local.ConfigPath)))
	return nil
}

// verifyBackup checks one backup and reports the result.
func verifyBackup(mgr *backup.Manager, id string) error {
	if err := mgr.Verify(id); err != nil {
		return fmt.Errorf("backup %s failed verification: %w", id, err)
	}
	fmt.Println(ui.StatusSuccess("backup " + id + " verified"))
	return nil
}
