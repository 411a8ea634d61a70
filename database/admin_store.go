package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/models"
)

// AdminStore is the admin-flag side table.
type AdminStore struct {
	db *sql.DB
}

func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, admin.ID, admin.Username, admin.Email, admin.PasswordHash, admin.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert admin: %w", err)
	}
	return nil
}

func (s *AdminStore) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var (
		a         models.Admin
		lastLogin sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, last_login_at, created_at
		FROM admins
		WHERE email = ?
	`, email).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &lastLogin, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query admin: %w", err)
	}
	if lastLogin.Valid {
		a.LastLoginAt = &lastLogin.Time
	}
	return &a, nil
}

func (s *AdminStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM admins WHERE id = ?`, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query admin flag: %w", err)
	}
	return true, nil
}

func (s *AdminStore) UpdateAdminLastLogin(ctx context.Context, adminID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE admins SET last_login_at = ? WHERE id = ?`, time.Now().UTC(), adminID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
