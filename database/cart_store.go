package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/models"
)

// CartStore holds the cart procedures. Every mutation runs in one transaction
// that bumps the per-user version and returns the cart as committed.
type CartStore struct {
	db *sql.DB
}

func NewCartStore(db *sql.DB) *CartStore {
	return &CartStore{db: db}
}

func (s *CartStore) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM carts WHERE user_id = ?`, userID).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query cart version: %w", err)
	}
	return loadCart(ctx, s.db, userID, version)
}

// AddToCart inserts the line or, when the same product/variant is already in
// the cart, adds to its quantity.
func (s *CartStore) AddToCart(ctx context.Context, userID string, line models.NewCartLine, expectedVersion *int64) (*models.Cart, error) {
	var cart *models.Cart
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		version, err := bumpVersion(ctx, tx, userID, expectedVersion)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, product_id, product_name, unit_price, quantity, color, size, note, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				quantity = quantity + VALUES(quantity),
				unit_price = VALUES(unit_price),
				product_name = VALUES(product_name),
				note = VALUES(note),
				updated_at = VALUES(updated_at)
		`, userID, line.ProductID, line.ProductName, line.UnitPrice, line.Quantity,
			line.Color, line.Size, line.Note, now, now)
		if err != nil {
			return fmt.Errorf("failed to add cart item: %w", err)
		}

		cart, err = loadCart(ctx, tx, userID, version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateCartItemQuantity sets the quantity of one line. Quantity 0 deletes it.
func (s *CartStore) UpdateCartItemQuantity(ctx context.Context, userID string, itemID int64, quantity int, expectedVersion *int64) (*models.Cart, error) {
	var cart *models.Cart
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		version, err := bumpVersion(ctx, tx, userID, expectedVersion)
		if err != nil {
			return err
		}

		var res sql.Result
		if quantity == 0 {
			res, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND user_id = ?`, itemID, userID)
		} else {
			res, err = tx.ExecContext(ctx,
				`UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
				quantity, time.Now().UTC(), itemID, userID)
		}
		if err != nil {
			return fmt.Errorf("failed to update cart item quantity: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}

		cart, err = loadCart(ctx, tx, userID, version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartStore) ClearUserCart(ctx context.Context, userID string, expectedVersion *int64) (*models.Cart, error) {
	var version int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		version, err = bumpVersion(ctx, tx, userID, expectedVersion)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &models.Cart{UserID: userID, Version: version, Items: []models.CartItem{}}, nil
}

// bumpVersion locks the user's cart row, checks the caller's expected version
// and returns the new one.
func bumpVersion(ctx context.Context, tx *sql.Tx, userID string, expected *int64) (int64, error) {
	if _, err := tx.ExecContext(ctx, `INSERT IGNORE INTO carts (user_id, version, updated_at) VALUES (?, 0, ?)`,
		userID, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("failed to ensure cart: %w", err)
	}

	var current int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM carts WHERE user_id = ? FOR UPDATE`, userID).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to lock cart: %w", err)
	}
	if expected != nil && *expected != current {
		return 0, ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, `UPDATE carts SET version = version + 1, updated_at = ? WHERE user_id = ?`,
		time.Now().UTC(), userID); err != nil {
		return 0, fmt.Errorf("failed to bump cart version: %w", err)
	}
	return current + 1, nil
}

func loadCart(ctx context.Context, q querier, userID string, version int64) (*models.Cart, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, product_name, unit_price, quantity, color, size, note, updated_at
		FROM cart_items
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	cart := &models.Cart{UserID: userID, Version: version, Items: []models.CartItem{}}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity,
			&item.Color, &item.Size, &item.Note, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return cart, nil
}
