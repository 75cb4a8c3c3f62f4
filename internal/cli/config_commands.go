package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/tabsync/tabsync/internal/config"
	"github.com/tabsync/tabsync/internal/ui"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage tabsync configuration",
		Commands: []*cli.Command{
			configInitCommand(),
			configShowCommand(),
			configPathCommand(),
		},
	}
}

func configInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a default configuration file",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing configuration file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if config.Exists() && !cmd.Bool("force") {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", config.FilePath())
			}

			cfg := config.Default()
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Println(ui.StatusSuccess("wrote " + config.FilePath()))
			fmt.Println(ui.Dim("add credentials to " + config.CredentialsPath()))
			return nil
		},
	}
}

func configShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Display the effective configuration",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}

			if !config.Exists() {
				fmt.Println(ui.Dim("# no config file; showing defaults and environment overrides"))
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func configPathCommand() *cli.Command {
	return &cli.Command{
		Name:  "path",
		Usage: "Print configuration file locations",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("config:      %s\n", config.FilePath())
			fmt.Printf("credentials: %s\n", config.CredentialsPath())
			return nil
		},
	}
}
