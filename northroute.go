package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/northroute/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "northroute",
		Usage:   "Location-routed conversation threads for a Canadian travel assistant",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: northroute.toml search path)",
			},
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Load environment variables from `FILE`",
			},
		},
		Before: func(c *cli.Context) error {
			if envFile := c.String("env-file"); envFile != "" {
				if err := cmd.LoadEnvFile(envFile); err != nil {
					return fmt.Errorf("failed to load env file %s: %w", envFile, err)
				}
				return nil
			}
			// A local .env is picked up silently when present.
			if _, err := os.Stat(".env"); err == nil {
				_ = cmd.LoadEnvFile(".env")
			}
			return nil
		},
		Commands: []*cli.Command{
			cmd.ChatCommand(),
			cmd.ServeCommand(),
			cmd.ConfigCommand(),
			cmd.EnvCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
