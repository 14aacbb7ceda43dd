package slack

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/notify"
	slackapi "github.com/slack-go/slack"
)

type mockClient struct {
	calls   int
	channel string
	failN   int // number of leading calls that are rate limited
	err     error
}

func (m *mockClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.calls++
	m.channel = channelID
	if m.calls <= m.failN {
		return "", "", &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
	}
	if m.err != nil {
		return "", "", m.err
	}
	return channelID, "1700000000.000100", nil
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Opts{ChannelID: "C1"}); err == nil || !strings.Contains(err.Error(), "bot token") {
		t.Errorf("missing token error = %v", err)
	}
	if _, err := New(Opts{BotToken: "xoxb-1"}); err == nil || !strings.Contains(err.Error(), "channel") {
		t.Errorf("missing channel error = %v", err)
	}
	if _, err := New(Opts{BotToken: "xoxb-1", ChannelID: "C1"}); err != nil {
		t.Errorf("New with real client: %v", err)
	}
}

func TestNotify_Posts(t *testing.T) {
	mc := &mockClient{}
	n, err := New(Opts{ChannelID: "C42", Client: mc})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(context.Background(), notify.Notice{Title: "Order #1 booked"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if mc.calls != 1 || mc.channel != "C42" {
		t.Errorf("calls=%d channel=%q", mc.calls, mc.channel)
	}
}

func TestNotify_RetriesRateLimit(t *testing.T) {
	mc := &mockClient{failN: 2}
	n, _ := New(Opts{ChannelID: "C1", Client: mc})
	if err := n.Notify(context.Background(), notify.Notice{Title: "x"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if mc.calls != 3 {
		t.Errorf("calls = %d, want 3", mc.calls)
	}
}

func TestNotify_GivesUpAfterMaxRetries(t *testing.T) {
	mc := &mockClient{failN: maxRetries + 5}
	n, _ := New(Opts{ChannelID: "C1", Client: mc})
	err := n.Notify(context.Background(), notify.Notice{Title: "x"})
	var rle *slackapi.RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("error = %v, want rate limit", err)
	}
	if mc.calls != maxRetries+1 {
		t.Errorf("calls = %d, want %d", mc.calls, maxRetries+1)
	}
}

func TestNotify_OtherErrorNotRetried(t *testing.T) {
	mc := &mockClient{err: errors.New("channel_not_found")}
	n, _ := New(Opts{ChannelID: "C1", Client: mc})
	if err := n.Notify(context.Background(), notify.Notice{Title: "x"}); err == nil {
		t.Fatal("expected error")
	}
	if mc.calls != 1 {
		t.Errorf("calls = %d, want 1", mc.calls)
	}
}

func TestRetryOnRateLimit_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryOnRateLimit(ctx, func() error {
		return &slackapi.RateLimitedError{RetryAfter: time.Hour}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestNoticeToAttachment(t *testing.T) {
	att := noticeToAttachment(notify.Notice{
		Title:  "Daily Booking Digest",
		Body:   "body",
		Color:  notify.ColorInfo,
		Fields: []notify.Field{{Name: "Orders", Value: "3", Short: true}},
	})
	if att.Title != "Daily Booking Digest" || att.Text != "body" || att.Color != notify.ColorInfo || att.Fallback != att.Title {
		t.Errorf("attachment = %+v", att)
	}
	if len(att.Fields) != 1 || att.Fields[0].Title != "Orders" || !att.Fields[0].Short {
		t.Errorf("fields = %+v", att.Fields)
	}
}
