package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Adda-Baaj/khobor-reader/internal/app"
	"github.com/Adda-Baaj/khobor-reader/internal/config"
	"github.com/Adda-Baaj/khobor-reader/internal/feed"
	"github.com/Adda-Baaj/khobor-reader/internal/logger"
)

func rootApp() *cli.App {
	return &cli.App{
		Name:  "reader",
		Usage: "Fetch RSS and Atom feeds and keep favorites",
		Description: `Settings come from the environment and configs/.env, e.g.:

		LOG_LEVEL=debug
		SOURCES_FILE=./configs/sources.yaml
		STORAGE_TYPE=bbolt BBOLT_PATH=./data/favorites.db`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides LOG_LEVEL)",
			},
			&cli.StringFlag{
				Name:  "sources",
				Usage: "sources file (overrides SOURCES_FILE)",
			},
		},
		Commands: []*cli.Command{
			fetchCmd(),
			shellCmd(),
		},
		Action: func(ctx *cli.Context) error {
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch one feed and print its items",
		ArgsUsage: "<url|source-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("fetch needs exactly one url or source id", 2)
			}
			return withSession(c, func(ctx context.Context, s *app.Session) error {
				res := <-s.Fetch(ctx, c.Args().First())
				if res.Err != nil {
					return cli.Exit(fmt.Sprintf("Could not load the feed (%s): %v", feed.ErrorKindOf(res.Err), res.Err), 1)
				}
				app.PrintItems(os.Stdout, res.Items)
				return nil
			})
		},
	}
}

func shellCmd() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start an interactive reader session",
		Action: func(c *cli.Context) error {
			return withSession(c, func(ctx context.Context, s *app.Session) error {
				return app.NewShell(s, os.Stdin, os.Stdout).Run(ctx)
			})
		},
	}
}

// withSession loads config, initializes logging and runs fn with a session that
// is closed afterwards.
func withSession(c *cli.Context, fn func(context.Context, *app.Session) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if src := c.String("sources"); src != "" {
		cfg.SourcesFile = src
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	log.DebugObj("reader starting", "config", cfg)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := app.NewSession(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize session", "error", err.Error())
		return err
	}
	defer session.Close()

	return fn(ctx, session)
}
