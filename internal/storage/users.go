package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// User is the identity record. BudgetConfig preferences live on the same
// row, mirroring the external preferences store the app talks to.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Config       core.BudgetConfig
	CreatedAt    time.Time
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, salary_paise, renewal_day, avatar_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash,
		u.Config.Salary.Paise, u.Config.RenewalDay, u.Config.AvatarURL,
		formatTime(u.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("user %s: %w", u.Email, core.ErrAlreadyExists)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, "id", id)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, "email", email)
}

func (r *SQLiteRepository) getUser(ctx context.Context, column, value string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, salary_paise, renewal_day, avatar_url, created_at
		FROM users WHERE `+column+` = ?`, value)

	var u User
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash,
		&u.Config.Salary.Paise, &u.Config.RenewalDay, &u.Config.AvatarURL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// UpdateBudgetConfig replaces the user's salary preferences. Partial
// updates are merged by the caller before reaching storage.
func (r *SQLiteRepository) UpdateBudgetConfig(ctx context.Context, userID string, cfg core.BudgetConfig) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET salary_paise = ?, renewal_day = ?, avatar_url = ? WHERE id = ?`,
		cfg.Salary.Paise, cfg.RenewalDay, cfg.AvatarURL, userID)
	if err != nil {
		return fmt.Errorf("update budget config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update budget config: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListUserIDs returns every user id. The worker sweeps them for pending
// snapshots.
func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
