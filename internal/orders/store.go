package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hvmc/store-backend/pkg/models"
)

// Store owns orders and their items. Items are always written with their
// parent order as one transactional unit, and ownership scoping happens in
// the queries themselves.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	ListByClient(ctx context.Context, clientID string) ([]*models.Order, error)
	GetByIDForClient(ctx context.Context, orderID, clientID string) (*models.Order, error)
	// UpdateOrder sets the sent flag and, when items is non-nil, replaces
	// the full item set in the same transaction.
	UpdateOrder(ctx context.Context, orderID, clientID string, isSent bool, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, orderID, clientID string) error
	// ExportRows returns one row per (order, item) pair created within
	// [start, end], with client and product fields resolved.
	ExportRows(ctx context.Context, start, end time.Time) ([]ExportRow, error)
}

// ExportRow is the flattened (order, item) projection the spreadsheet
// exporter writes.
type ExportRow struct {
	OrderID     string
	ClientName  string
	ClientEmail string
	ClientPhone string
	CreatedAt   time.Time
	IsSent      bool
	ProductName string
	Quantity    int
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func CreateOrderTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(255) PRIMARY KEY,
			client_id VARCHAR(255) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMP NOT NULL,
			is_sent BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id SERIAL PRIMARY KEY,
			order_id VARCHAR(255) NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id VARCHAR(255) NOT NULL REFERENCES products(id),
			quantity INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_client_id ON orders(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, client_id, created_at, is_sent)
		VALUES ($1, $2, $3, $4)
	`, order.ID, order.ClientID, order.CreatedAt, order.IsSent)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id
		`, order.ID, item.ProductID, item.Quantity).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID string) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, created_at, is_sent
		FROM orders WHERE client_id = $1 ORDER BY created_at DESC
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.ClientID, &order.CreatedAt, &order.IsSent); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		if err := s.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *PostgresStore) GetByIDForClient(ctx context.Context, orderID, clientID string) (*models.Order, error) {
	order := &models.Order{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, created_at, is_sent
		FROM orders WHERE id = $1 AND client_id = $2
	`, orderID, clientID).Scan(&order.ID, &order.ClientID, &order.CreatedAt, &order.IsSent)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) UpdateOrder(ctx context.Context, orderID, clientID string, isSent bool, items []models.OrderItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET is_sent = $1 WHERE id = $2 AND client_id = $3
	`, isSent, orderID, clientID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	if items != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
			return fmt.Errorf("failed to clear order items: %w", err)
		}
		for _, item := range items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity)
				VALUES ($1, $2, $3)
			`, orderID, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) DeleteOrder(ctx context.Context, orderID, clientID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM orders WHERE id = $1 AND client_id = $2
	`, orderID, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExportRows(ctx context.Context, start, end time.Time) ([]ExportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, u.name, u.email, u.phone, o.created_at, o.is_sent, p.name, oi.quantity
		FROM orders o
		JOIN users u ON u.id = o.client_id
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		WHERE o.created_at BETWEEN $1 AND $2
		ORDER BY o.created_at, o.id, oi.id
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query export rows: %w", err)
	}
	defer rows.Close()

	var result []ExportRow
	for rows.Next() {
		var row ExportRow
		err := rows.Scan(&row.OrderID, &row.ClientName, &row.ClientEmail, &row.ClientPhone,
			&row.CreatedAt, &row.IsSent, &row.ProductName, &row.Quantity)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *PostgresStore) loadItems(ctx context.Context, order *models.Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT oi.id, oi.product_id, p.name, oi.quantity
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, order.ID)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}
