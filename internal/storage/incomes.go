package storage

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// incomeRow mirrors the income table's external naming convention
// (source, date_received). All translation between that convention and the
// domain's description/date fields happens here, at the adapter boundary,
// never in the aggregation logic.
type incomeRow struct {
	ID           string
	UserID       string
	AmountPaise  int64
	Source       string
	DateReceived string
	CreatedAt    string
}

func incomeToRow(in core.Income) incomeRow {
	return incomeRow{
		ID:           in.ID,
		UserID:       in.UserID,
		AmountPaise:  in.Amount.Paise,
		Source:       in.Description,
		DateReceived: in.Date.String(),
		CreatedAt:    formatTime(in.CreatedAt),
	}
}

func incomeFromRow(row incomeRow) (core.Income, error) {
	date, err := core.ParseDate(row.DateReceived)
	if err != nil {
		// The external convention falls back to the creation timestamp
		// when a row carries no received date.
		created := parseTime(row.CreatedAt)
		if created.IsZero() {
			return core.Income{}, fmt.Errorf("income %s has malformed date_received %q", row.ID, row.DateReceived)
		}
		date = core.Date{Time: created.Truncate(24 * time.Hour)}
	}
	desc := row.Source
	if desc == "" {
		desc = "Income"
	}
	return core.Income{
		ID:          row.ID,
		UserID:      row.UserID,
		Amount:      core.Money{Paise: row.AmountPaise},
		Description: desc,
		Date:        date,
		CreatedAt:   parseTime(row.CreatedAt),
	}, nil
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) error {
	row := incomeToRow(in)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO incomes (id, user_id, amount_paise, source, date_received, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.ID, row.UserID, row.AmountPaise, row.Source, row.DateReceived, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("create income: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListIncomes returns all of the user's incomes, newest received first.
func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID string) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, amount_paise, source, date_received, created_at
		FROM incomes WHERE user_id = ?
		ORDER BY date_received DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var row incomeRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.AmountPaise,
			&row.Source, &row.DateReceived, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in, err := incomeFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
