package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/northroute/internal/contextbuilder"
	"github.com/northroute/internal/logging"
	"github.com/northroute/internal/registry"
	"github.com/northroute/internal/router"
	"github.com/northroute/internal/store"
)

// ChatCommand returns the interactive chat command.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive session routed into location threads",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "trace",
				Aliases: []string{"t"},
				Usage:   "Write a session trace to `FILE` (overrides logging.trace_file)",
			},
		},
		Action: runChat,
	}
}

func runChat(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := c.Context

	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer cleanup()

	threads, err := st.Load(ctx)
	if err != nil {
		var readErr *store.ReadError
		if !errors.As(err, &readErr) {
			return fmt.Errorf("failed to load thread state: %w", err)
		}
		// Corrupt state means no prior state, not a dead session.
		log.Warn().Err(readErr).Msg("Stored thread state unreadable, starting empty")
		threads = nil
	}

	client := newBackendClient(cfg)
	rt := router.New(router.Config{
		Registry:         registry.New(threads, cfg.Router.FallbackLocation),
		Store:            st,
		Builder:          contextbuilder.New(cfg.Router.ResolverContextMessages),
		Resolver:         client,
		Replier:          client,
		FallbackLocation: cfg.Router.FallbackLocation,
	})
	defer rt.Reset()

	trace := openTrace(c.String("trace"), cfg.Logging.TraceFile)
	defer trace.Close()

	fmt.Println("NorthRoute: messages are routed into per-location threads.")
	fmt.Println("Commands: /threads, /switch <location>, /history, /quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Printf("[%s]> ", rt.Active())
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runChatCommand(rt, line); quit {
				break
			}
			continue
		}

		submitMessage(c, rt, trace, line)
	}

	return scanner.Err()
}

// submitMessage runs one routing cycle and prints its outcome. Reply errors
// are reported and dismissed; the loop carries on.
func submitMessage(c *cli.Context, rt *router.Router, trace *logging.SessionTrace, message string) {
	before := rt.Active()
	trace.Submission(message)

	res, err := rt.Submit(c.Context, message)
	if err != nil {
		trace.Error("reply", err)
		if res.Location != "" {
			fmt.Printf("! reply failed (%v); your message is kept in %q, send again to retry\n", err, res.Location)
		} else {
			fmt.Printf("! %v\n", err)
		}
		return
	}

	switched := res.Location != before
	trace.Resolved(res.Location, switched)
	trace.Reply(res.Location, res.Reply)

	if switched {
		fmt.Printf("(routed to %q)\n", res.Location)
	}
	fmt.Println(res.Reply)
	fmt.Println()
}

// runChatCommand handles a /-prefixed REPL command. It reports whether the
// session should end.
func runChatCommand(rt *router.Router, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return true

	case "/threads":
		threads := rt.Threads()
		if len(threads) == 0 {
			fmt.Println("no threads yet")
			return false
		}
		active := rt.Active()
		for _, th := range threads {
			marker := " "
			if th.LocationKey == active {
				marker = "*"
			}
			fmt.Printf("%s %-25s %3d messages  (last %s)\n",
				marker, th.LocationKey, len(th.Messages), th.LastUpdated.Local().Format("2006-01-02 15:04"))
		}

	case "/switch":
		if strings.TrimSpace(arg) == "" {
			fmt.Println("usage: /switch <location>")
			return false
		}
		selected := rt.SetActive(arg)
		fmt.Printf("active thread is now %q\n", selected)

	case "/history":
		th, ok := rt.ActiveThread()
		if !ok || len(th.Messages) == 0 {
			fmt.Printf("no messages in %q yet\n", rt.Active())
			return false
		}
		for _, m := range th.Messages {
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), m.Role, m.Content)
		}

	default:
		fmt.Printf("unknown command %q (try /threads, /switch, /history, /quit)\n", cmd)
	}
	return false
}

// openTrace starts session tracing when either the flag or the config asks
// for it. Trace failures are logged, never fatal.
func openTrace(flagPath, configPath string) *logging.SessionTrace {
	path := flagPath
	if path == "" {
		path = configPath
	}
	if path == "" {
		return nil
	}

	trace, err := logging.StartSessionTrace(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Session trace disabled")
		return nil
	}
	log.Info().Str("path", path).Msg("Session trace enabled")
	return trace
}
