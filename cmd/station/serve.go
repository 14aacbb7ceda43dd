package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/api"
	"github.com/AntonKrinichnyi/trainstation/internal/auth"
	"github.com/AntonKrinichnyi/trainstation/internal/config"
	"github.com/AntonKrinichnyi/trainstation/internal/jobs"
	"github.com/AntonKrinichnyi/trainstation/internal/media"
	"github.com/AntonKrinichnyi/trainstation/internal/notify"
	"github.com/AntonKrinichnyi/trainstation/internal/notify/discord"
	"github.com/AntonKrinichnyi/trainstation/internal/notify/slack"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the booking API server",
		Long: `Starts the REST API under /api together with the scheduled jobs:
the daily booking digest (when Slack or Discord is configured) and the
sweep of orphaned train images.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, quiet)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to station config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable the request log")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, quiet bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if port == 0 {
		port = cfg.Server.Port
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}
	store := &media.LocalStore{Dir: cfg.Server.MediaDir, BaseURL: cfg.Server.MediaURL}

	deps := api.Deps{
		DB:          gormDB,
		Issuer:      auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Hasher:      auth.NewHasher(nil),
		Store:       store,
		CORSOrigins: cfg.Server.CORSOrigins,
		PageSize:    cfg.Server.OrderPageSize,
		MaxPageSize: cfg.Server.OrderMaxPageSize,
		Notifier:    notifier,
	}
	if !quiet {
		deps.RequestLog = out
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		deps.Idempotency = rdb
		fmt.Fprintf(out, "Idempotency keys stored in redis at %s\n", cfg.Redis.Addr)
	}

	sched, err := jobs.New(jobs.Opts{
		DB:             gormDB,
		Notifier:       notifier,
		Store:          store,
		DigestSchedule: cfg.Notify.DigestSchedule,
		SweepSchedule:  cfg.Media.SweepSchedule,
	})
	if err != nil {
		return err
	}
	sched.Start()
	fmt.Fprintf(out, "Scheduled %d background jobs\n", sched.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	err = api.Start(ctx, api.StartOpts{Deps: deps, Port: port, Out: out})

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	sched.Stop(stopCtx)
	return err
}

// buildNotifier returns the configured chat notifiers, or nil when none is
// configured.
func buildNotifier(cfg config.NotifyConfig) (notify.Notifier, error) {
	var multi notify.Multi
	if cfg.Slack.Enabled() {
		n, err := slack.New(slack.Opts{BotToken: cfg.Slack.BotToken, ChannelID: cfg.Slack.ChannelID})
		if err != nil {
			return nil, err
		}
		multi = append(multi, n)
	}
	if cfg.Discord.Enabled() {
		n, err := discord.New(discord.Opts{BotToken: cfg.Discord.BotToken, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return nil, err
		}
		multi = append(multi, n)
	}
	switch len(multi) {
	case 0:
		return nil, nil
	case 1:
		return multi[0], nil
	}
	return multi, nil
}
