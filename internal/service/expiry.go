package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/ludoarena/match-engine/internal/notify"
	"golang.org/x/sync/errgroup"
)

type SweepOptions struct {
	Interval    time.Duration
	Batch       int
	Concurrency int
}

// SweepResult counts what one sweep did. Skipped matches were moved by
// another path between selection and transition.
type SweepResult struct {
	Scanned   int
	Cancelled int
	Skipped   int
	Failed    int
}

// ExpiryScheduler cancels and refunds matches whose join or room-code
// timer has lapsed. Each match is handled on its own; a failure is logged
// and retried on the next tick.
type ExpiryScheduler struct {
	Deps
	settlement *SettlementExecutor
	opts       SweepOptions
	sched      gocron.Scheduler
}

func NewExpiryScheduler(deps Deps, settlement *SettlementExecutor, opts SweepOptions) *ExpiryScheduler {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Batch <= 0 {
		opts.Batch = 200
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &ExpiryScheduler{Deps: deps, settlement: settlement, opts: opts}
}

// Start runs Sweep every interval until ctx is done or Stop is called.
// Overlapping runs are skipped.
func (s *ExpiryScheduler) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.opts.Interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			res, err := s.Sweep(ctx)
			if err != nil {
				slog.Error("[expiry] sweep failed", "error", err)
				return
			}
			if res.Scanned > 0 {
				slog.Info("[expiry] sweep done", "scanned", res.Scanned, "cancelled", res.Cancelled,
					"skipped", res.Skipped, "failed", res.Failed)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}

	s.sched = sched
	sched.Start()
	slog.Info("[expiry] scheduler started", "interval", s.opts.Interval)
	return nil
}

func (s *ExpiryScheduler) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

// Sweep performs one pass over every expired match, a page of Batch at a
// time. Matches that fail stay expired, so later pages skip past them and
// a run of failures cannot starve newer candidates. The returned error
// covers only the candidate query; per-match failures are counted in the
// result.
func (s *ExpiryScheduler) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now()
	var res SweepResult
	offset := 0

	for ctx.Err() == nil {
		candidates, err := s.Matches.ListExpired(ctx, now, s.opts.Batch, offset)
		if err != nil {
			return res, fmt.Errorf("failed to list expired matches: %w", err)
		}
		page := s.sweepPage(ctx, candidates, now)
		res.Scanned += page.Scanned
		res.Cancelled += page.Cancelled
		res.Skipped += page.Skipped
		res.Failed += page.Failed

		if len(candidates) < s.opts.Batch {
			break
		}
		// Cancelled matches leave the candidate set; the rest are still
		// ahead of the next page.
		offset += page.Skipped + page.Failed
	}
	return res, nil
}

func (s *ExpiryScheduler) sweepPage(ctx context.Context, candidates []match.Match, now time.Time) SweepResult {
	var cancelled, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i := range candidates {
		m := &candidates[i]
		g.Go(func() error {
			err := s.expire(gctx, m, now)
			switch {
			case err == nil:
				cancelled.Add(1)
			case errors.Is(err, match.ErrConflict):
				skipped.Add(1)
			default:
				failed.Add(1)
				slog.Error("[expiry] failed to expire match", "match_id", m.ID, "status", m.Status, "error", err)
			}
			// Never abort the batch for one match.
			return nil
		})
	}
	_ = g.Wait()

	return SweepResult{
		Scanned:   len(candidates),
		Cancelled: int(cancelled.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
}

func (s *ExpiryScheduler) expire(ctx context.Context, m *match.Match, now time.Time) error {
	var reason string
	switch {
	case m.Status == match.StatusWaiting && !now.Before(m.JoinExpiryAt):
		reason = match.ReasonJoinExpired
	case m.Status == match.StatusLive && m.RoomCode == nil &&
		m.RoomCodeExpiryAt != nil && !now.Before(*m.RoomCodeExpiryAt):
		reason = match.ReasonRoomCodeExpired
	default:
		return match.ErrConflict
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	next, err := s.settlement.Refund(ctx, tx, m, reason)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("[expiry] match cancelled", "match_id", m.ID, "status", m.Status, "reason", reason)
	s.notify(ctx, notify.EventMatchCancelled, next, map[string]any{"reason": reason})
	if m.Status == match.StatusWaiting {
		s.notify(ctx, notify.EventWaitingUpdated, next, map[string]any{"status": next.Status})
	}
	return nil
}
