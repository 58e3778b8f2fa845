package health

import (
	"context"
	stdErrors "errors"
	"fmt"
	"reflect"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/contracts"
	"github.com/mirage-net/mirage/internal/domain"
	"github.com/mirage-net/mirage/internal/errors"
)

// errCyclePanicked marks a refresh cycle that was aborted by a recovered panic.
var errCyclePanicked = stdErrors.New("refresh cycle panicked")

// sleepFunc waits for d or until ctx is done, whichever comes first.
type sleepFunc func(ctx context.Context, d time.Duration) error

// Refresher keeps a Table in step with the directory by polling it periodically.
// NewRefresher should be used to create instances of Refresher.
type Refresher struct {
	table  *Table
	lister contracts.PeerLister
	logger hclog.Logger
	sleep  sleepFunc

	attempts     int
	baseDelay    time.Duration
	cooldown     time.Duration
	fetchTimeout time.Duration
	interval     time.Duration
}

// NewRefresher creates a Refresher feeding table from lister.
func NewRefresher(
	logger hclog.Logger,
	table *Table,
	lister contracts.PeerLister,
	opt ...RefresherOption,
) (*Refresher, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if table == nil {
		return nil, fmt.Errorf("health table cannot be nil")
	}
	if lister == nil || reflect.ValueOf(lister).IsNil() {
		return nil, fmt.Errorf("peer lister cannot be nil")
	}

	opts, err := NewRefresherOptions(opt...)
	if err != nil {
		return nil, err
	}

	return &Refresher{
		table:        table,
		lister:       lister,
		logger:       logger.Named("refresher"),
		sleep:        clockSleep(opts.Clock),
		attempts:     opts.Attempts,
		baseDelay:    opts.BaseDelay,
		cooldown:     opts.Cooldown,
		fetchTimeout: opts.FetchTimeout,
		interval:     opts.Interval,
	}, nil
}

// Run refreshes the table every interval until ctx is cancelled.
// A cycle that exhausts its retries is logged and the loop carries on; a panicking cycle is
// recovered and followed by the cooldown. Cancellation returns nil.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("Starting health refresher", "interval", r.interval)

	for {
		wait := r.interval

		err := r.safeRefresh(ctx)
		switch {
		case ctx.Err() != nil:
			r.logger.Info("Health refresher stopped")
			return nil
		case stdErrors.Is(err, errCyclePanicked):
			r.logger.Error("Health refresh cycle crashed", "error", err, "cooldown", r.cooldown)
			wait = r.cooldown
		case err != nil:
			r.logger.Error("Health refresh cycle failed", "error", err)
		}

		if err := r.sleep(ctx, wait); err != nil {
			r.logger.Info("Health refresher stopped")
			return nil
		}
	}
}

// Refresh runs a single cycle: poll the directory, retrying with linear backoff, then fold the
// result into the table and evict stale peers.
func (r *Refresher) Refresh(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		peers, err := r.fetch(ctx)
		if err == nil {
			r.table.Observe(peers)
			evicted := r.table.EvictStale()
			r.logger.Debug("Refreshed peer health", "peers", len(peers), "evicted", len(evicted))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		lastErr = err
		if !errors.Retryable(err) {
			r.logger.Error("Directory rejected health poll", "error", err)
			break
		}
		if attempt == r.attempts {
			break
		}

		delay := r.baseDelay * time.Duration(attempt)
		r.logger.Warn(
			"Directory poll failed, retrying",
			"attempt", attempt,
			"max_attempts", r.attempts,
			"delay", delay,
			"error", err,
		)
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w: polling directory: %w", errors.ErrBackendUnavailable, lastErr)
}

func (r *Refresher) fetch(ctx context.Context) ([]domain.PeerRecord, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	return r.lister.ListPeers(fetchCtx)
}

// safeRefresh runs Refresh, converting a panic into errCyclePanicked.
func (r *Refresher) safeRefresh(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", errCyclePanicked, p)
		}
	}()

	return r.Refresh(ctx)
}

func clockSleep(c clock.Clock) sleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		timer := c.Timer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}
