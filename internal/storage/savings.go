package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
)

// CreateMonthlySaving inserts a snapshot. The UNIQUE(user_id, month)
// constraint makes concurrent duplicate generation a reported conflict
// instead of a silent double row.
func (r *SQLiteRepository) CreateMonthlySaving(ctx context.Context, s core.MonthlySaving) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_savings (id, user_id, month, year, income_paise, expenses_paise, saved_paise, savings_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, string(s.Month), s.Year,
		s.Income.Paise, s.Expenses.Paise, s.Saved.Paise, s.SavingsRate,
		formatTime(time.Now()))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("snapshot %s/%s: %w", s.UserID, s.Month, core.ErrAlreadyExists)
		}
		return fmt.Errorf("create monthly saving: %w", err)
	}

	slog.InfoContext(ctx, "Monthly saving persisted",
		"user_id", s.UserID,
		"month", s.Month,
		"saved_paise", s.Saved.Paise)
	return nil
}

func (r *SQLiteRepository) GetMonthlySaving(ctx context.Context, userID string, month core.MonthKey) (*core.MonthlySaving, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, month, year, income_paise, expenses_paise, saved_paise, savings_rate
		FROM monthly_savings WHERE user_id = ? AND month = ?`, userID, string(month))

	s, err := scanMonthlySaving(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get monthly saving: %w", err)
	}
	return s, nil
}

// ListMonthlySavings returns the user's snapshot history, newest month
// first.
func (r *SQLiteRepository) ListMonthlySavings(ctx context.Context, userID string) ([]core.MonthlySaving, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, month, year, income_paise, expenses_paise, saved_paise, savings_rate
		FROM monthly_savings WHERE user_id = ?
		ORDER BY month DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list monthly savings: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlySaving
	for rows.Next() {
		s, err := scanMonthlySaving(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monthly saving: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteMonthlySaving(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM monthly_savings WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete monthly saving: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete monthly saving: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMonthlySaving(row rowScanner) (*core.MonthlySaving, error) {
	var (
		s     core.MonthlySaving
		month string
	)
	if err := row.Scan(&s.ID, &s.UserID, &month, &s.Year,
		&s.Income.Paise, &s.Expenses.Paise, &s.Saved.Paise, &s.SavingsRate); err != nil {
		return nil, err
	}
	s.Month = core.MonthKey(month)
	return &s, nil
}
