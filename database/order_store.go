package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/models"
)

type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

const orderColumns = `id, user_id, payment_intent_id, customer_name, customer_email, customer_phone,
	shipping_address, shipping_city, shipping_postal_code, delivery_method, delivery_fee,
	total_amount, currency, payment_status, order_status, created_at, updated_at`

// CreateOrder inserts the order and its line snapshot in one transaction.
func (s *OrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, order.ID, order.UserID, order.PaymentIntentID,
			order.Customer.Name, order.Customer.Email, nullString(order.Customer.Phone),
			nullString(order.Customer.Address), nullString(order.Customer.City), nullString(order.Customer.PostalCode),
			nullString(order.DeliveryMethod), order.DeliveryFee,
			order.TotalAmount, order.Currency, order.PaymentStatus, order.OrderStatus,
			order.CreatedAt, order.UpdatedAt)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for _, item := range order.Items {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity, color, size, note)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, order.ID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.Color, item.Size, item.Note)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
		}
		return nil
	})
}

// UpdatePaymentStatus locates the order by its payment intent and assigns the
// statuses. An empty orderStatus leaves order_status untouched.
func (s *OrderStore) UpdatePaymentStatus(ctx context.Context, paymentIntentID, paymentStatus, orderStatus string) (*models.Order, error) {
	var order *models.Order
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = ? FOR UPDATE`, paymentIntentID)
		o, err := scanOrder(row)
		if err != nil {
			return err
		}

		if orderStatus == "" {
			orderStatus = o.OrderStatus
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET payment_status = ?, order_status = ?, updated_at = ? WHERE id = ?`,
			paymentStatus, orderStatus, now, o.ID); err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}

		o.PaymentStatus = paymentStatus
		o.OrderStatus = orderStatus
		o.UpdatedAt = now
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.getOrder(ctx, `id = ?`, orderID)
}

// GetUserOrder returns the order only when it belongs to userID.
func (s *OrderStore) GetUserOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	return s.getOrder(ctx, `id = ? AND user_id = ?`, orderID, userID)
}

func (s *OrderStore) getOrder(ctx context.Context, where string, args ...any) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, args...)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, unit_price, quantity, color, size, note
		FROM order_items
		WHERE order_id = ?
		ORDER BY id ASC
	`, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity,
			&item.Color, &item.Size, &item.Note); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return order, nil
}

// ListUserOrders returns the user's orders, newest first, with their items.
func (s *OrderStore) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.payment_intent_id, o.total_amount, o.currency, o.payment_status, o.order_status, o.created_at,
		       oi.product_id, oi.product_name, oi.unit_price, oi.quantity, oi.color, oi.size, oi.note
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE o.user_id = ?
		ORDER BY o.created_at DESC, oi.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			o                      models.Order
			productID, productName sql.NullString
			color, size, note      sql.NullString
			unitPrice              sql.NullInt64
			quantity               sql.NullInt32
		)
		if err := rows.Scan(&o.ID, &o.PaymentIntentID, &o.TotalAmount, &o.Currency, &o.PaymentStatus, &o.OrderStatus, &o.CreatedAt,
			&productID, &productName, &unitPrice, &quantity, &color, &size, &note); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}

		i, ok := index[o.ID]
		if !ok {
			o.UserID = userID
			orders = append(orders, o)
			i = len(orders) - 1
			index[o.ID] = i
		}
		if productID.Valid {
			orders[i].Items = append(orders[i].Items, models.OrderItem{
				ProductID:   productID.String,
				ProductName: productName.String,
				UnitPrice:   unitPrice.Int64,
				Quantity:    int(quantity.Int32),
				Color:       color.String,
				Size:        size.String,
				Note:        note.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// ListOrders is the admin listing; items are not loaded.
func (s *OrderStore) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.OrderStatus != "" {
		conds = append(conds, "order_status = ?")
		args = append(args, filter.OrderStatus)
	}
	if filter.PaymentStatus != "" {
		conds = append(conds, "payment_status = ?")
		args = append(args, filter.PaymentStatus)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus is the admin fulfillment transition; payment_status is
// owned by the webhook reconciler and is not touched here.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET order_status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*models.Order, error) {
	var (
		o                                 models.Order
		phone, address, city, postal, dlv sql.NullString
	)
	err := row.Scan(&o.ID, &o.UserID, &o.PaymentIntentID, &o.Customer.Name, &o.Customer.Email, &phone,
		&address, &city, &postal, &dlv, &o.DeliveryFee,
		&o.TotalAmount, &o.Currency, &o.PaymentStatus, &o.OrderStatus, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	o.Customer.Phone = phone.String
	o.Customer.Address = address.String
	o.Customer.City = city.String
	o.Customer.PostalCode = postal.String
	o.DeliveryMethod = dlv.String
	return &o, nil
}
