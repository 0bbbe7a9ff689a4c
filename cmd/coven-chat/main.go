// ABOUTME: Entry point for the coven-chat terminal client
// ABOUTME: Interactive prompt loop over a polled answer backend

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/backend"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/message"
	"github.com/2389/coven-chat/internal/poller"
	"github.com/2389/coven-chat/internal/profile"
	"github.com/2389/coven-chat/internal/session"
	"github.com/2389/coven-chat/internal/store"
	"github.com/2389/coven-chat/internal/transcript"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                      _           _
  ___ _____   _____ _ __         ___| |__   __ _| |_
 / __/ _ \ \ / / _ \ '_ \ _____ / __| '_ \ / _' | __|
| (_| (_) \ V /  __/ | | |_____| (__| | | | (_| | |_
 \___\___/ \_/ \___|_| |_|      \___|_| |_|\__,_|\__|
`

// getConfigPath returns the path to the client config file.
// Priority: COVEN_CHAT_CONFIG env var > XDG_CONFIG_HOME/coven-chat/config.toml > ~/.config/coven-chat/config.toml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_CHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven-chat", "config.toml")
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: XDG config dir)")
	serverURL := flag.String("server", "", "Backend base URL (overrides config)")
	dbPath := flag.String("db", "", "Session database path (overrides config)")
	ephemeral := flag.Bool("ephemeral", false, "Keep session state in memory only")
	flag.Parse()

	if err := run(*configPath, *serverURL, *dbPath, *ephemeral); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, serverURL, dbPath string, ephemeral bool) error {
	cfg, err := loadConfig(configPath, serverURL, dbPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	cyan.Print(banner)
	gray.Printf("    version: %s\n", version)
	gray.Printf("    backend: %s\n", cfg.Backend.URL)
	if ephemeral {
		gray.Printf("    session: in-memory (ephemeral)\n")
	} else {
		gray.Printf("    session: %s\n", cfg.Database.Path)
	}
	fmt.Println()

	var sessionStore store.SessionStore
	if ephemeral {
		sessionStore = store.NewMemoryStore()
	} else {
		sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening session database: %w", err)
		}
		sessionStore = sqlStore
	}
	defer sessionStore.Close()

	msgs := message.NewStore()
	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.RequestTimeout, logger)
	ctrl := poller.New(client, msgs, cfg.Schedule(), logger)

	sess, err := session.New(client, ctrl, msgs, sessionStore, logger)
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	defer sess.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if existing := sess.Messages(); len(existing) > 0 {
		gray.Printf("  (restored %d messages, conversation %s)\n\n", len(existing), orNone(sess.ConversationID()))
		printLog(existing)
	}

	return promptLoop(ctx, sess, ctrl)
}

func loadConfig(configPath, serverURL, dbPath string) (*config.Config, error) {
	var cfg *config.Config
	if configPath == "" {
		configPath = getConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	if serverURL != "" {
		cfg.Backend.URL = serverURL
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func promptLoop(ctx context.Context, sess *session.Session, ctrl *poller.Controller) error {
	reader := bufio.NewReader(os.Stdin)
	gray := color.New(color.FgHiBlack)

	gray.Println("  Type a message, or /help for commands.")
	fmt.Println()

	for {
		if ctx.Err() != nil {
			return nil
		}

		color.New(color.FgGreen, color.Bold).Print("you> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil // EOF
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := runCommand(ctx, sess, ctrl, reader, line); done {
				return nil
			}
			continue
		}

		outcome, err := sess.Send(ctx, line)
		if err != nil {
			if errors.Is(err, session.ErrProfilePending) {
				color.Yellow("  finish the profile prompt first (/profile to answer, or press enter through it to skip)")
				continue
			}
			printFailedAnswer(sess, outcome)
			continue
		}

		if outcome.HeldForProfile {
			color.Yellow("  Before we start: a few optional questions. Leave blank to skip.")
			outcome, err = resolveProfile(ctx, sess, reader)
			if err != nil {
				printFailedAnswer(sess, outcome)
				continue
			}
			if outcome == nil {
				continue
			}
		}

		waitForAnswer(ctx, sess, ctrl, outcome.AssistantMessageID)
	}
}

// runCommand handles a slash command. Returns true when the loop
// should exit.
func runCommand(ctx context.Context, sess *session.Session, ctrl *poller.Controller, reader *bufio.Reader, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println("  /profile        edit your profile")
		fmt.Println("  /clear          start a fresh conversation")
		fmt.Println("  /export <path>  write the transcript as HTML")
		fmt.Println("  /quit           exit")

	case "/clear":
		if err := sess.Clear(); err != nil {
			color.Red("  clear failed: %v", err)
		} else {
			color.New(color.FgHiBlack).Println("  conversation cleared")
		}

	case "/profile":
		outcome, err := editProfile(ctx, sess, reader)
		if err != nil {
			color.Red("  %v", err)
			printFailedAnswer(sess, outcome)
			break
		}
		// Resolving can release a message held by the gate.
		if outcome != nil && outcome.AssistantMessageID != "" {
			waitForAnswer(ctx, sess, ctrl, outcome.AssistantMessageID)
		}

	case "/export":
		if arg == "" {
			color.Red("  usage: /export <path>")
			break
		}
		if err := exportTranscript(sess, arg); err != nil {
			color.Red("  export failed: %v", err)
		} else {
			color.New(color.FgHiBlack).Printf("  transcript written to %s\n", arg)
		}

	default:
		color.Red("  unknown command %s (try /help)", cmd)
	}
	return false
}

// resolveProfile walks the first-message profile prompt. A fully blank
// form skips; a held message is dispatched either way.
func resolveProfile(ctx context.Context, sess *session.Session, reader *bufio.Reader) (*session.SendOutcome, error) {
	p := askProfile(reader, nil)
	if p.IsEmpty() {
		return sess.SkipProfile(ctx)
	}
	return sess.ResolveProfile(ctx, p)
}

// editProfile re-asks the profile questions outside the gate flow.
func editProfile(ctx context.Context, sess *session.Session, reader *bufio.Reader) (*session.SendOutcome, error) {
	p := askProfile(reader, sess.Profile())
	return sess.ResolveProfile(ctx, p)
}

func askProfile(reader *bufio.Reader, current *profile.Profile) profile.Profile {
	var existing profile.Profile
	if current != nil {
		existing = *current
	}

	p := profile.Profile{
		Name:    prompt(reader, "  Name", existing.Name),
		Purpose: prompt(reader, "  What brings you here", existing.Purpose),
	}

	level := prompt(reader, "  Technical level (beginner/intermediate/advanced/expert)", string(existing.TechnicalLevel))
	switch strings.ToLower(level) {
	case string(profile.LevelBeginner), string(profile.LevelIntermediate),
		string(profile.LevelAdvanced), string(profile.LevelExpert):
		p.TechnicalLevel = profile.TechnicalLevel(strings.ToLower(level))
	case "":
	default:
		color.Yellow("  unrecognized level %q, leaving it unset", level)
	}
	return p
}

// waitForAnswer blocks until the poll loop concludes, then prints the
// assistant message.
func waitForAnswer(ctx context.Context, sess *session.Session, ctrl *poller.Controller, messageID string) {
	spinnerDone := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		spinner(spinnerDone)
	}()

	select {
	case <-ctrl.Done():
	case <-ctx.Done():
		sess.Stop()
	}
	close(spinnerDone)
	wg.Wait()

	printAnswer(sess, messageID)
}

func spinner(done <-chan struct{}) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	gray := color.New(color.FgHiBlack)
	i := 0
	for {
		select {
		case <-done:
			fmt.Print("\r \r")
			return
		default:
		}
		gray.Printf("\r%s thinking...", frames[i%len(frames)])
		i++
		select {
		case <-done:
			fmt.Print("\r              \r")
			return
		case <-time.After(120 * time.Millisecond):
		}
	}
}

func printAnswer(sess *session.Session, messageID string) {
	for _, m := range sess.Messages() {
		if m.ID != messageID {
			continue
		}
		printMessage(m)
		return
	}
}

// printFailedAnswer prints the errored placeholder after a failed
// dispatch, if one was appended.
func printFailedAnswer(sess *session.Session, outcome *session.SendOutcome) {
	if outcome == nil || outcome.AssistantMessageID == "" {
		return
	}
	printAnswer(sess, outcome.AssistantMessageID)
}

func printLog(msgs []message.Message) {
	for _, m := range msgs {
		if m.Role == message.RoleUser {
			color.New(color.FgGreen, color.Bold).Print("you> ")
			fmt.Println(m.Content)
		} else {
			printMessage(m)
		}
	}
}

func printMessage(m message.Message) {
	if m.Status == message.StatusError {
		color.New(color.FgRed, color.Bold).Print("err> ")
		fmt.Println(m.Content)
		return
	}
	color.New(color.FgCyan, color.Bold).Print("bot> ")
	fmt.Println(m.Content)
}

func exportTranscript(sess *session.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	title := "Conversation"
	if id := sess.ConversationID(); id != "" {
		title = "Conversation " + id
	}
	return transcript.Write(f, title, sess.Messages())
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}
