package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/northroute/internal/agent"
	"github.com/northroute/internal/classifier"
	"github.com/northroute/internal/llm"
	"github.com/northroute/internal/server"
)

// ServeCommand returns the CLI command for running the backend service.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the assistant backend service",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override the configured port",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	// Without a key the service still works: keyword classification and
	// canned replies. The interface fields stay nil rather than holding a
	// nil *Connector.
	cls := classifier.New(nil)
	agt := agent.New(nil)

	if cfg.OpenAI.APIKey != "" {
		locationConn, err := llm.NewConnector(llm.Config{
			Token:   cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.LocationModel,
			BaseURL: cfg.OpenAI.BaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to create location model connector: %w", err)
		}
		chatConn, err := llm.NewConnector(llm.Config{
			Token:   cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to create chat model connector: %w", err)
		}
		cls = classifier.New(locationConn)
		agt = agent.New(chatConn)
		log.Info().
			Str("model", cfg.OpenAI.Model).
			Str("location_model", cfg.OpenAI.LocationModel).
			Msg("Serving with model-backed classification and replies")
	} else {
		log.Warn().Msg("No OpenAI API key configured, serving heuristic classification and canned replies")
	}

	srv := server.New(server.Config{
		Port:         port,
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimitRPS: cfg.Server.RateLimitRPS,
	}, cls, agt)

	fmt.Printf("Starting NorthRoute backend on port %d...\n", port)
	return srv.Start()
}
