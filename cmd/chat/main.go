// Terminal chat client for the Askari Patrol Assistant. Runs the
// conversation engine in-process against the configured MCP server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/askarihq/patrolbot/internal/bot"
	"github.com/askarihq/patrolbot/internal/config"
	"github.com/askarihq/patrolbot/internal/dispatch"
	"github.com/askarihq/patrolbot/internal/session"
	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Keep stdout clean for the conversation; logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	mcp := dispatch.NewMCPClient(cfg.MCPServerURL, cfg.DispatchTimeout, logger)

	sessions := session.NewStore()
	engine := bot.NewEngine(bot.EngineConfig{
		Sessions:      sessions,
		Dispatcher:    mcp,
		Authenticator: mcp,
		Timeout:       cfg.DispatchTimeout,
		Logger:        logger,
	})

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create renderer:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conversationID := "cli_" + uuid.NewString()

	fmt.Println("Askari Patrol Assistant")
	fmt.Println("Type 'help' for commands, 'exit' to quit.")
	if !mcp.Healthy(ctx) {
		fmt.Println("warning: MCP server not reachable at", cfg.MCPServerURL)
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", "quit", "q":
			fmt.Println("Goodbye.")
			return
		case "clear":
			sessions.Remove(conversationID)
			conversationID = "cli_" + uuid.NewString()
			fmt.Println("Conversation cleared.")
			continue
		case "help":
			printHelp()
			continue
		}

		reply := engine.HandleMessage(ctx, conversationID, line)
		rendered, err := renderer.Render(reply)
		if err != nil {
			fmt.Println(reply)
			continue
		}
		fmt.Print(rendered)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "input error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`Commands:
  help          show this message
  clear         start a fresh conversation
  exit|quit|q   leave the chat
  logout        end the authenticated session

To log in, send your credentials, e.g.:
  username: alice password: secret`)
}
