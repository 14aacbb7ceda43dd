// Package jobs runs the periodic background work of the server: the daily
// booking digest and the sweep of orphaned train images.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/media"
	"github.com/AntonKrinichnyi/trainstation/internal/notify"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 5 * time.Minute

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Opts configures the scheduler. A nil Notifier disables the digest and a
// nil Store disables the sweep.
type Opts struct {
	DB             *gorm.DB
	Notifier       notify.Notifier
	Store          *media.LocalStore
	DigestSchedule string
	SweepSchedule  string
}

// Scheduler wraps a cron runner with the registered jobs.
type Scheduler struct {
	cron *cron.Cron
	opts Opts
	now  func() time.Time
}

// New validates the schedules and registers the enabled jobs.
func New(opts Opts) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithParser(cronParser), cron.WithLocation(time.UTC)),
		opts: opts,
		now:  time.Now,
	}
	if opts.Notifier != nil {
		if _, err := s.cron.AddFunc(opts.DigestSchedule, s.digest); err != nil {
			return nil, fmt.Errorf("jobs: digest schedule %q: %w", opts.DigestSchedule, err)
		}
	}
	if opts.Store != nil {
		if _, err := s.cron.AddFunc(opts.SweepSchedule, s.sweep); err != nil {
			return nil, fmt.Errorf("jobs: sweep schedule %q: %w", opts.SweepSchedule, err)
		}
	}
	return s, nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) digest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	sent, err := notify.SendDailyDigest(ctx, s.opts.DB, s.opts.Notifier, s.now())
	if err != nil {
		log.Printf("jobs: daily digest: %v", err)
		return
	}
	if sent {
		log.Printf("jobs: daily digest sent")
	}
}

func (s *Scheduler) sweep() {
	n, err := media.Sweep(s.opts.DB, s.opts.Store)
	if err != nil {
		log.Printf("jobs: media sweep: %v", err)
		return
	}
	if n > 0 {
		log.Printf("jobs: media sweep removed %d orphaned images", n)
	}
}
