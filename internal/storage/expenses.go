package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, amount_paise, category, description, date, receipt, receipt_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Amount.Paise, string(e.Category), e.Description,
		e.Date.String(), e.Receipt, e.ReceiptName, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"user_id", e.UserID,
		"amount_paise", e.Amount.Paise,
		"category", e.Category)
	return nil
}

// UpdateExpense performs a full-field replace of the expense row.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET amount_paise = ?, category = ?, description = ?, date = ?, receipt = ?, receipt_name = ?
		WHERE id = ? AND user_id = ?`,
		e.Amount.Paise, string(e.Category), e.Description, e.Date.String(),
		e.Receipt, e.ReceiptName, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// GetExpense returns one expense owned by the user.
func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id string) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount_paise, category, description, date, receipt, receipt_name, created_at
		FROM expenses WHERE id = ? AND user_id = ?`, id, userID)

	var (
		e         core.Expense
		category  string
		dateStr   string
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Amount.Paise, &category,
		&e.Description, &dateStr, &e.Receipt, &e.ReceiptName, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	e.Category = core.Category(category)
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("expense %s has malformed date %q", e.ID, dateStr)
	}
	e.Date = d
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListExpenses returns all of the user's expenses, date descending.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, amount_paise, category, description, date, receipt, receipt_name, created_at
		FROM expenses WHERE user_id = ?
		ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e         core.Expense
			category  string
			dateStr   string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Paise, &category,
			&e.Description, &dateStr, &e.Receipt, &e.ReceiptName, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Category = core.Category(category)
		d, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("expense %s has malformed date %q", e.ID, dateStr)
		}
		e.Date = d
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
