package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akramov/reportflow/internal/bot"
	"github.com/akramov/reportflow/internal/chat"
	discordadapter "github.com/akramov/reportflow/internal/chat/discord"
	slackadapter "github.com/akramov/reportflow/internal/chat/slack"
	"github.com/akramov/reportflow/internal/config"
	"github.com/akramov/reportflow/internal/db"
	"github.com/akramov/reportflow/internal/sheets"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reportflow daemon",
		Long:  "Connects to the configured chat platform, collects reports, and routes them through approval.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to reportflow config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	adapter, err := createAdapter(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	sink := createSink(ctx, cfg, out)

	daemon, err := bot.NewDaemon(bot.DaemonOpts{
		DB:      gormDB,
		Config:  cfg,
		Adapter: adapter,
		Sink:    sink,
		Out:     out,
	})
	if err != nil {
		return err
	}

	return daemon.Run(ctx)
}

// createAdapter builds a platform adapter from the config.
func createAdapter(cfg *config.Config) (chat.Adapter, error) {
	switch cfg.Platform {
	case "discord":
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken:  cfg.Discord.BotToken,
			ChannelID: cfg.Discord.ChannelID,
		})
	case "slack":
		return slackadapter.New(slackadapter.AdapterOpts{
			AppToken:  cfg.Slack.AppToken,
			BotToken:  cfg.Slack.BotToken,
			ChannelID: cfg.Slack.ChannelID,
		})
	default:
		return nil, fmt.Errorf("serve: unsupported platform %q", cfg.Platform)
	}
}

// createSink builds the spreadsheet sink, or returns nil when no usable
// credentials file is present. A missing sink disables export but never
// blocks the daemon.
func createSink(ctx context.Context, cfg *config.Config, out io.Writer) sheets.Sink {
	if _, err := os.Stat(cfg.Sheets.CredentialsFile); err != nil {
		fmt.Fprintf(out, "Sheets: no credentials at %s, export disabled\n", cfg.Sheets.CredentialsFile)
		return nil
	}
	sink, err := sheets.NewGoogleSink(ctx, cfg.Sheets.CredentialsFile)
	if err != nil {
		fmt.Fprintf(out, "Sheets: %v, export disabled\n", err)
		return nil
	}
	return sink
}
