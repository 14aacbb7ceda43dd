// Package notify delivers booking notices and digests to chat platforms.
package notify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Sidebar colors.
const (
	ColorInfo    = "#2196F3"
	ColorSuccess = "#36a64f"
)

// sendTimeout bounds a background delivery started by Go.
const sendTimeout = 30 * time.Second

// Notice is a platform-neutral chat message.
type Notice struct {
	Title  string
	Body   string
	Color  string
	Fields []Field
}

// Field is a key-value pair displayed with a notice.
type Field struct {
	Name  string
	Value string
	Short bool // render side-by-side with another field
}

// Notifier delivers a notice to one destination.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Multi fans a notice out to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, target := range m {
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards notices.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Notice) error { return nil }

// Go delivers n in the background and logs a failure. Request handlers use
// it so a slow chat API never delays a booking response.
func Go(n Notifier, notice Notice) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := n.Notify(ctx, notice); err != nil {
			log.Printf("notify: %s: %v", notice.Title, err)
		}
	}()
}

// Recorder keeps every notice it receives. It is used in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notice
	Err  error
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.Err
}

// Sent returns a copy of the recorded notices.
func (r *Recorder) Sent() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.sent))
	copy(out, r.sent)
	return out
}
