// ABOUTME: Entry point for staffbot
// ABOUTME: Runs the bot or registers its slash commands

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/2389/staffbot/internal/audit"
	"github.com/2389/staffbot/internal/bot"
	"github.com/2389/staffbot/internal/config"
	"github.com/2389/staffbot/internal/dedupe"
	"github.com/2389/staffbot/internal/discord"
	"github.com/2389/staffbot/internal/grant"
	"github.com/2389/staffbot/internal/metrics"
	"github.com/2389/staffbot/internal/notify"
	"github.com/2389/staffbot/internal/scheduler"
	"github.com/2389/staffbot/internal/store"
	"github.com/2389/staffbot/internal/sweeper"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _         __  __ _           _
 ___| |_ __ _ / _|/ _| |__   ___ | |_
/ __| __/ _' | |_| |_| '_ \ / _ \| __|
\__ \ || (_| |  _|  _| |_) | (_) | |_
|___/\__\__,_|_| |_| |_.__/ \___/ \__|
`

const (
	// Gateway events can be redelivered after a resume.
	dedupeTTL  = 10 * time.Minute
	dedupeSize = 10000
)

func usage(flags *pflag.FlagSet) {
	fmt.Println("Usage: staffbot [flags] [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run     Connect and serve events (default)")
	fmt.Println("  deploy  Register slash commands with the guild")
	fmt.Println()
	fmt.Println("Flags:")
	flags.PrintDefaults()
}

func main() {
	flags := pflag.NewFlagSet("staffbot", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to config file (default $STAFFBOT_CONFIG or ~/.config/staffbot/config.yaml)")
	showVersion := flags.BoolP("version", "v", false, "print version and exit")
	flags.Usage = func() { usage(flags) }
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version)
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: loading .env: %v\n", err)
		os.Exit(1)
	}

	command := "run"
	if flags.NArg() > 0 {
		command = flags.Arg(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path := config.ResolvePath(*configPath)

	var err error
	switch command {
	case "run":
		err = runBot(ctx, path)
	case "deploy":
		err = runDeploy(ctx, path)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage(flags)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runBot(ctx context.Context, configPath string) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Watching:  %s\n", cfg.Channels.WatchedLog)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Addr)
	}
	if cfg.Matrix.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Matrix:    %s\n", cfg.Matrix.RoomID)
	}
	fmt.Println()

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	gw, err := discord.New(cfg.Discord.Token, logger)
	if err != nil {
		_ = st.Close()
		return err
	}
	client := gw.Client()

	var mirror notify.Mirror
	if cfg.Matrix.Enabled {
		mm, err := notify.NewMatrixMirror(cfg.Matrix.Homeserver, cfg.Matrix.UserID, cfg.Matrix.AccessToken, cfg.Matrix.RoomID)
		if err != nil {
			_ = st.Close()
			return fmt.Errorf("creating matrix mirror: %w", err)
		}
		mirror = mm
	}
	notifier := notify.New(client, mirror, logger)

	sched := scheduler.New(logger)
	seen := dedupe.New(dedupeTTL, dedupeSize)
	defer seen.Close()

	grants := grant.NewManager(client, sched, notifier, cfg.GrantConfig(), logger)
	app := bot.New(bot.Deps{
		Store:   st,
		Grants:  grants,
		Auditor: audit.New(st, client, notifier, seen, cfg.AuditConfig(), logger),
		Sweeper: sweeper.New(st, cfg.Retention.MaxAge, cfg.Retention.SweepInterval, logger),
	}, bot.Config{WatchedChannelID: cfg.Channels.WatchedLog}, logger)
	gw.Register(app)

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr, logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	logger.Info("starting staffbot", "config", configPath, "guild", cfg.Discord.GuildID)
	runErr := gw.Run(ctx)

	return shutdown(logger, sched, grants, st, gw, runErr)
}

// shutdown abandons pending grants, then closes the store before the session.
func shutdown(logger *slog.Logger, sched *scheduler.Scheduler, grants *grant.Manager, st store.MessageStore, gw *discord.Gateway, runErr error) error {
	logger.Info("shutting down", "pending_grants", sched.Pending())
	grants.Abandon(sched.Stop())

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := st.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	if err := gw.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func runDeploy(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging, os.Stdout)

	gw, err := discord.New(cfg.Discord.Token, logger)
	if err != nil {
		return err
	}

	registered, err := gw.Deploy(ctx, cfg.Discord.ApplicationID, cfg.Discord.GuildID, bot.Commands())
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("✓ ")
	fmt.Printf("Registered %d command(s) in guild %s\n", len(registered), cfg.Discord.GuildID)
	return nil
}
