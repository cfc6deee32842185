package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cantoplayer/canto/internal/config"
	"github.com/cantoplayer/canto/internal/domain"
	"github.com/cantoplayer/canto/internal/favorites"
	"github.com/cantoplayer/canto/internal/log"
	"github.com/cantoplayer/canto/internal/openlist"
	"github.com/cantoplayer/canto/internal/playback"
	"github.com/cantoplayer/canto/internal/player"
	"github.com/cantoplayer/canto/internal/playlist"
	"github.com/cantoplayer/canto/internal/store"
	"github.com/cantoplayer/canto/internal/tui"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

const resolveTimeout = 30 * time.Second

func main() {
	var (
		configFile  string
		forceLogin  bool
		showVersion bool
	)
	flag.StringVar(&configFile, "config", "", "config file (default ~/.config/canto/config.yaml)")
	flag.BoolVar(&forceLogin, "login", false, "log in again and save the new token")
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: canto [-config file] [-login] [-v] [path...]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("canto %s\n", Version)
		return
	}

	if err := run(configFile, forceLogin, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, forceLogin bool, paths []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting canto", "version", Version, "config", cfg.Source())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if forceLogin || !cfg.IsConfigured() {
		if err := runLoginFlow(ctx, cfg, logger); err != nil {
			return err
		}
	}
	client := openlist.NewClient(cfg.Server.URL, cfg.Server.Token, cfg.Server.RateLimit, logger)

	db, err := store.Open(cfg.Storage.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer db.Close()

	storeOpts := []playlist.Option{playlist.WithLogger(logger)}
	if !cfg.Playback.AvoidRepeat {
		storeOpts = append(storeOpts, playlist.WithRepeatableShuffle())
	}
	queue := playlist.New(db, storeOpts...)

	if err := enqueue(ctx, queue, openlist.NewResolver(client, logger), paths, logger); err != nil {
		return err
	}

	widget, err := newWidget(ctx, cfg, logger)
	if err != nil {
		return err
	}

	syncer := playback.New(queue, widget, playback.Options{
		SuppressWindow: cfg.Playback.SuppressWindow,
		ResumeDelay:    cfg.Playback.ResumeDelay,
		TickInterval:   cfg.Playback.TickInterval,
	}, logger)
	defer func() {
		if err := syncer.Close(); err != nil {
			logger.Warn("failed to close player", "error", err)
		}
	}()

	go func() {
		if err := syncer.Run(ctx); err != nil {
			logger.Error("synchronizer stopped", "error", err)
		}
	}()

	favSvc := favorites.NewService(client, client, db, logger)

	model := tui.NewModel(queue, tui.Options{
		Favorites:     favSvc,
		Position:      widget,
		Sleep:         syncer,
		DefaultFolder: cfg.Favorites.DefaultFolder,
		Logger:        logger,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// newWidget launches mpv, or the silent in-memory widget when the player
// command is "none"
func newWidget(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Widget, error) {
	if cfg.Player.Command == player.CommandNone {
		logger.Info("using in-memory player")
		return player.NewMemory(logger), nil
	}

	mpv, err := player.NewMPV(ctx, player.Options{
		Command: cfg.Player.Command,
		Args:    cfg.Player.Args,
		Socket:  cfg.Player.Socket,
		Volume:  cfg.Player.Volume,
	}, logger)
	if err != nil {
		if errors.Is(err, domain.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: install mpv or set player.command", err)
		}
		return nil, fmt.Errorf("failed to start player: %w", err)
	}
	return mpv, nil
}

// enqueue resolves server paths and adds them to the queue. Later paths are
// added first so the queue keeps command-line order.
func enqueue(ctx context.Context, queue *playlist.Store, resolver *openlist.Resolver, paths []string, logger *slog.Logger) error {
	if len(paths) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	items := make([]domain.PlaylistItem, 0, len(paths))
	for _, p := range paths {
		item, err := resolver.Resolve(ctx, p)
		if err != nil {
			if openlist.IsUnauthorized(err) {
				return fmt.Errorf("resolving %s: %w (run canto -login)", p, err)
			}
			logger.Warn("skipping path", "path", p, "error", err)
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", p, err)
			continue
		}
		items = append(items, item)
	}

	for i := len(items) - 1; i >= 0; i-- {
		queue.Add(items[i])
	}
	if len(items) > 0 {
		// queue the first new path for playback
		queue.Select(0)
	}
	return nil
}

// runLoginFlow prompts for the server and credentials, then saves the token
func runLoginFlow(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println()
	fmt.Println("OpenList Login")
	fmt.Println("━━━━━━━━━━━━━━")

	for cfg.Server.URL == "" {
		fmt.Print("Server URL (e.g., http://192.168.1.100:5244): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		cfg.Server.URL = strings.TrimRight(strings.TrimSpace(input), "/")
		if cfg.Server.URL == "" {
			fmt.Println("Server URL cannot be empty. Please try again.")
		}
	}
	client := openlist.NewClient(cfg.Server.URL, "", cfg.Server.RateLimit, logger)

	prompt := "Username: "
	if cfg.Server.Username != "" {
		prompt = fmt.Sprintf("Username [%s]: ", cfg.Server.Username)
	}
	fmt.Print(prompt)
	username, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = cfg.Server.Username
	}

	// Prompt for password (hidden input)
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Println("Authenticating...")
	result, err := client.Login(ctx, username, string(passwordBytes))
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	cfg.Server.Token = result.Token
	cfg.Server.Username = result.Username
	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println("✓ Logged in, configuration saved.")
	return nil
}
