// Package worker runs the background snapshot pipeline: it consumes
// snapshot-check messages from AMQP and periodically sweeps all accounts
// so that every user gets a previous-month savings snapshot even when
// they never open the dashboard.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// Store is the slice of the repository the worker needs.
type Store interface {
	budget.SnapshotStore

	GetUser(ctx context.Context, id string) (*storage.User, error)
	ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// SnapshotWorker generates monthly savings snapshots on demand and on a
// periodic sweep. Snapshot creation is idempotent, so a message and a
// sweep racing for the same user is harmless; the per-user lock only
// avoids doing the work twice.
type SnapshotWorker struct {
	store     Store
	generator *budget.Generator
	mirror    sheets.SavingsMirror

	sweepInterval time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSnapshotWorker builds a worker. mirror may be nil when no Google
// Sheets mirror is configured.
func NewSnapshotWorker(store Store, mirror sheets.SavingsMirror, sweepInterval time.Duration) *SnapshotWorker {
	return &SnapshotWorker{
		store:         store,
		generator:     budget.NewGenerator(store),
		mirror:        mirror,
		sweepInterval: sweepInterval,
		locks:         make(map[string]*sync.Mutex),
	}
}

// HandleSnapshotCheck processes a single snapshot-check message.
func (w *SnapshotWorker) HandleSnapshotCheck(ctx context.Context, msg *amqp.SnapshotCheckMessage) error {
	slog.InfoContext(ctx, "Processing snapshot check",
		"user_id", msg.UserID,
		"timestamp", msg.Timestamp)

	if err := w.EnsureForUser(ctx, msg.UserID); err != nil {
		return fmt.Errorf("snapshot check for user %s: %w", msg.UserID, err)
	}
	return nil
}

// EnsureForUser loads the user's data and creates the previous-month
// snapshot if it is missing. A deleted user is not an error; the message
// is simply dropped.
func (w *SnapshotWorker) EnsureForUser(ctx context.Context, userID string) error {
	unlock := w.lockUser(userID)
	defer unlock()

	user, err := w.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Snapshot check for unknown user, dropping",
				"user_id", userID)
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	expenses, err := w.store.ListExpenses(ctx, userID)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}

	snapshot, err := w.generator.EnsureSnapshot(ctx, userID, user.Config.Salary, expenses, user.CreatedAt, time.Now())
	if err != nil {
		return fmt.Errorf("generate snapshot: %w", err)
	}
	if snapshot == nil {
		return nil
	}

	slog.InfoContext(ctx, "Snapshot created",
		"user_id", userID,
		"month", snapshot.Month,
		"saved_paise", snapshot.Saved.Paise)

	// The mirror is best effort. The snapshot is already persisted, so a
	// Sheets outage must not fail the message.
	if w.mirror != nil {
		if err := w.mirror.AppendSnapshot(ctx, *snapshot); err != nil {
			slog.WarnContext(ctx, "Snapshot mirror append failed",
				"user_id", userID,
				"month", snapshot.Month,
				"error", err)
		}
	}
	return nil
}

// Sweep runs a snapshot check over every account. Errors on individual
// users do not stop the sweep.
func (w *SnapshotWorker) Sweep(ctx context.Context) error {
	userIDs, err := w.store.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users for sweep: %w", err)
	}

	var failed int
	for _, id := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.EnsureForUser(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Sweep failed for user", "user_id", id, "error", err)
			failed++
		}
	}

	slog.InfoContext(ctx, "Snapshot sweep completed",
		"users", len(userIDs),
		"failed", failed)
	return nil
}

// Run starts the consume loop and the periodic sweep and blocks until the
// context is cancelled or one of the loops fails. amqpURL may be empty,
// in which case only the sweep runs.
func (w *SnapshotWorker) Run(ctx context.Context, amqpURL, exchange, queue string) error {
	g, ctx := errgroup.WithContext(ctx)

	if amqpURL != "" {
		g.Go(func() error {
			return amqp.ConsumeWithReconnect(ctx, amqpURL, exchange, queue, func(msg *amqp.SnapshotCheckMessage) error {
				return w.HandleSnapshotCheck(ctx, msg)
			})
		})
	}

	g.Go(func() error {
		// One sweep at startup covers users whose messages were lost
		// while the worker was down.
		if err := w.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "Startup sweep failed", "error", err)
		}

		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
					slog.ErrorContext(ctx, "Periodic sweep failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *SnapshotWorker) lockUser(userID string) func() {
	w.mu.Lock()
	l, ok := w.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		w.locks[userID] = l
	}
	w.mu.Unlock()

	l.Lock()
	return l.Unlock
}
