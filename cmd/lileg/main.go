package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ooocheckitout/llm-knowledge-base/config"
	"github.com/ooocheckitout/llm-knowledge-base/internal/bot"
	"github.com/ooocheckitout/llm-knowledge-base/internal/loader"
	"github.com/ooocheckitout/llm-knowledge-base/internal/server"
	"github.com/ooocheckitout/llm-knowledge-base/internal/store"
)

func main() {
	var configPath string

	root := &cobra.Command{Use: "lileg"}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(configPath)
			if serveAddr == "" {
				serveAddr = cfg.Server.Address
			}

			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}

			httpLogger := log.New(os.Stdout, "[HTTP] ", log.LstdFlags)
			srv := server.New(application.ingest, application.rag, application.metrics, httpLogger)
			return srv.Run(serveAddr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	var botMode string
	botCmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(configPath)
			if cfg.Telegram.Token == "" {
				return fmt.Errorf("telegram token not configured (telegram.token)")
			}
			if botMode != "" {
				cfg.Telegram.Mode = botMode
			}

			ctx, cancel := signalContext()
			defer cancel()

			application, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}

			botLogger := log.New(os.Stdout, "[BOT] ", log.LstdFlags)
			feedback := feedbackStore(cfg, botLogger)
			if feedback != nil {
				defer feedback.Close()
			}
			web := loader.NewWebLoader(cfg.General.DefaultTimeout, botLogger)

			tg, err := bot.New(bot.Config{
				Token:        cfg.Telegram.Token,
				Mode:         cfg.Telegram.Mode,
				PollTimeout:  cfg.Telegram.PollTimeout,
				DownloadsDir: cfg.Telegram.DownloadsDir,
			}, application.ingest, application.rag, application.history, feedback, web, botLogger)
			if err != nil {
				return err
			}
			return tg.Run(ctx)
		},
	}
	botCmd.Flags().StringVar(&botMode, "mode", "", "ask or ingest (overrides config)")

	var migrateDir string
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply feedback database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(configPath)
			dsn, err := cfg.Storage.Postgres.DSN()
			if err != nil {
				return err
			}
			return store.Migrate(migrateDir, dsn)
		},
	}
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "file://migrations", "migrations source")

	root.AddCommand(serve, botCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
