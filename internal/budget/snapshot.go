package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// SnapshotStore is the persistence port the generator needs. The store is
// expected to enforce uniqueness of (user, month) and report a violating
// create with core.ErrAlreadyExists.
type SnapshotStore interface {
	// GetMonthlySaving returns the snapshot for (userID, month) or
	// core.ErrNotFound.
	GetMonthlySaving(ctx context.Context, userID string, month core.MonthKey) (*core.MonthlySaving, error)
	CreateMonthlySaving(ctx context.Context, s core.MonthlySaving) error
}

// Generator creates at most one MonthlySaving per user per completed
// calendar month. Safe to invoke repeatedly; a failed attempt leaves no
// partial state and the next invocation retries from the existence check.
type Generator struct {
	store SnapshotStore
}

func NewGenerator(store SnapshotStore) *Generator {
	return &Generator{store: store}
}

// EnsureSnapshot generates the savings snapshot for the calendar month
// immediately preceding now, if it does not exist yet.
//
// It returns (nil, nil) when no work is needed: the target month ended
// before the account existed, the snapshot is already present, or a
// concurrent caller created it first. Concurrent invocations for the same
// (user, month) race between the existence check and the create; the
// storage-level uniqueness constraint turns the loser into a no-op.
func (g *Generator) EnsureSnapshot(ctx context.Context, userID string, salary core.Money, expenses []core.Expense, accountCreatedAt, now time.Time) (*core.MonthlySaving, error) {
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	targetStart := firstOfThisMonth.AddDate(0, -1, 0)
	targetEnd := firstOfThisMonth.Add(-time.Nanosecond)
	targetMonth := core.MonthKeyFor(targetStart)

	// The account did not exist during the target month.
	if targetEnd.Before(accountCreatedAt) {
		slog.DebugContext(ctx, "Skipping snapshot before account creation",
			"user_id", userID,
			"month", targetMonth)
		return nil, nil
	}

	existing, err := g.store.GetMonthlySaving(ctx, userID, targetMonth)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("check existing snapshot: %w", err)
	}
	if existing != nil {
		return nil, nil
	}

	totalExpenses := TotalForRange(expenses, targetStart, targetEnd)
	saved := salary.Sub(totalExpenses)
	var rate float64
	if salary.Paise > 0 {
		rate = float64(saved.Paise) / float64(salary.Paise)
	}

	snapshot := core.MonthlySaving{
		ID:          uuid.NewString(),
		UserID:      userID,
		Month:       targetMonth,
		Year:        targetStart.Year(),
		Income:      salary,
		Expenses:    totalExpenses,
		Saved:       saved,
		SavingsRate: rate,
	}

	if err := g.store.CreateMonthlySaving(ctx, snapshot); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			// Lost the race to a concurrent generator.
			slog.InfoContext(ctx, "Snapshot already created concurrently",
				"user_id", userID,
				"month", targetMonth)
			return nil, nil
		}
		return nil, fmt.Errorf("create snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Monthly savings snapshot generated",
		"user_id", userID,
		"month", targetMonth,
		"expenses_paise", totalExpenses.Paise,
		"saved_paise", saved.Paise)

	return &snapshot, nil
}
