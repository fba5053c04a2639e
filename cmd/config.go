package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/northroute/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "northroute.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: runConfigValidate,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets masked",
				Action: runConfigShow,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Println("Configuration is valid")
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("[backend]")
	fmt.Printf("base_url = %q\n", cfg.Backend.BaseURL)
	fmt.Printf("timeout_seconds = %d\n", cfg.Backend.TimeoutSeconds)
	fmt.Printf("max_retries = %d\n", cfg.Backend.MaxRetries)

	fmt.Println("\n[storage]")
	fmt.Printf("driver = %q\n", cfg.Storage.Driver)
	fmt.Printf("path = %q\n", cfg.Storage.Path)
	if cfg.Storage.PostgresDSN != "" {
		fmt.Printf("postgres_dsn = %q\n", maskSecret(cfg.Storage.PostgresDSN))
	}

	fmt.Println("\n[router]")
	fmt.Printf("fallback_location = %q\n", cfg.Router.FallbackLocation)
	fmt.Printf("resolver_context_messages = %d\n", cfg.Router.ResolverContextMessages)

	fmt.Println("\n[server]")
	fmt.Printf("port = %d\n", cfg.Server.Port)
	fmt.Printf("cors_origins = [%s]\n", quoteList(cfg.Server.CORSOrigins))
	fmt.Printf("rate_limit_rps = %g\n", cfg.Server.RateLimitRPS)

	fmt.Println("\n[openai]")
	if cfg.OpenAI.APIKey != "" {
		fmt.Printf("api_key = %q\n", maskSecret(cfg.OpenAI.APIKey))
	} else {
		fmt.Println("# api_key is not set (heuristic/fallback mode)")
	}
	fmt.Printf("model = %q\n", cfg.OpenAI.Model)
	fmt.Printf("location_model = %q\n", cfg.OpenAI.LocationModel)
	if cfg.OpenAI.BaseURL != "" {
		fmt.Printf("base_url = %q\n", cfg.OpenAI.BaseURL)
	}

	fmt.Println("\n[logging]")
	fmt.Printf("level = %q\n", cfg.Logging.Level)
	if cfg.Logging.TraceFile != "" {
		fmt.Printf("trace_file = %q\n", cfg.Logging.TraceFile)
	}

	return nil
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return strings.Join(quoted, ", ")
}
