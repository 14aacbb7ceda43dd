package main

import (
	"context"
	"fmt"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/notify"
	"github.com/spf13/cobra"
)

func newDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Booking digest commands",
	}

	cmd.AddCommand(newDigestSendCmd())
	return cmd
}

func newDigestSendCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send the daily booking digest now",
		Long: `Builds the digest for the last 24 hours and posts it to the configured
Slack and Discord channels. With --dry-run the digest is printed instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigestSend(cmd, configPath, dryRun)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to station config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest instead of sending it")
	return cmd
}

func runDigestSend(cmd *cobra.Command, configPath string, dryRun bool) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	now := time.Now()

	if dryRun {
		report, err := notify.BuildDailyReport(gormDB, now.Add(-24*time.Hour), now)
		if err != nil {
			return err
		}
		notice := notify.FormatDaily(report)
		fmt.Fprintln(out, notice.Title)
		fmt.Fprintln(out, notice.Body)
		return nil
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}
	if notifier == nil {
		return fmt.Errorf("no notifier configured: set notify.slack or notify.discord")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sent, err := notify.SendDailyDigest(ctx, gormDB, notifier, now)
	if err != nil {
		return err
	}
	if !sent {
		fmt.Fprintln(out, "Nothing to report; digest skipped.")
		return nil
	}
	fmt.Fprintln(out, "Digest sent.")
	return nil
}
