package main

import (
	"strings"
	"testing"

	"github.com/AntonKrinichnyi/trainstation/internal/config"
	"github.com/AntonKrinichnyi/trainstation/internal/notify"
)

func TestDigestSendCmd_DryRun(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := runCmd(t, "", "db", "init", "--config", path); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "", "digest", "send", "--config", path, "--dry-run")
	if err != nil {
		t.Fatalf("digest send --dry-run: %v", err)
	}
	if !strings.Contains(out, "Daily Booking Digest") || !strings.Contains(out, "0 orders, 0 tickets") {
		t.Errorf("output = %s", out)
	}
}

func TestDigestSendCmd_NoNotifier(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := runCmd(t, "", "db", "init", "--config", path); err != nil {
		t.Fatal(err)
	}
	_, err := runCmd(t, "", "digest", "send", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "no notifier configured") {
		t.Errorf("error = %v, want no notifier configured", err)
	}
}

func TestBuildNotifier(t *testing.T) {
	slackCfg := config.ChatConfig{BotToken: "xoxb-test", ChannelID: "C123"}
	discordCfg := config.ChatConfig{BotToken: "discord-test", ChannelID: "456"}

	tests := []struct {
		name  string
		cfg   config.NotifyConfig
		nil   bool
		multi int
	}{
		{"none", config.NotifyConfig{}, true, 0},
		{"slack only", config.NotifyConfig{Slack: slackCfg}, false, 0},
		{"discord only", config.NotifyConfig{Discord: discordCfg}, false, 0},
		{"both", config.NotifyConfig{Slack: slackCfg, Discord: discordCfg}, false, 2},
		{"channel missing", config.NotifyConfig{Slack: config.ChatConfig{BotToken: "xoxb-test"}}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := buildNotifier(tt.cfg)
			if err != nil {
				t.Fatalf("buildNotifier: %v", err)
			}
			if (n == nil) != tt.nil {
				t.Fatalf("notifier = %v, want nil=%v", n, tt.nil)
			}
			if m, ok := n.(notify.Multi); ok != (tt.multi > 0) || len(m) != tt.multi {
				t.Errorf("notifier = %T (len %d), want %d notifiers fanned out", n, len(m), tt.multi)
			}
		})
	}
}
