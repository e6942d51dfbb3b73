package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/delali3/era-store-sub002/internal/domain"
	"github.com/delali3/era-store-sub002/pkg/database"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
//
// CreateOrder and CreateLines do not share a transaction. A confirmed
// payment must always leave an order header behind, even when line inserts
// fail afterwards; the caller surfaces that as a partial commit.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder inserts the order header row.
func (r *OrderRepository) CreateOrder(ctx context.Context, o *domain.Order) error {
	shippingJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	query := `
		INSERT INTO orders (id, user_id, order_number, status, subtotal_amount, tax_amount, shipping_amount, discount_amount, total_amount, currency, shipping_address, payment_method, payment_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.Exec(ctx, query,
		o.ID,
		o.UserID,
		o.OrderNumber,
		o.Status,
		o.SubtotalAmount,
		o.TaxAmount,
		o.ShippingAmount,
		o.DiscountAmount,
		o.TotalAmount,
		o.Currency,
		shippingJSON,
		o.PaymentMethod,
		o.PaymentReference,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// CreateLines inserts the order's line rows in a single transaction. Either
// all lines land or none do; the order header is untouched either way.
func (r *OrderRepository) CreateLines(ctx context.Context, orderID string, lines []domain.OrderLine) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO order_lines (id, order_id, product_id, quantity, price_per_unit, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, line := range lines {
		_, err = tx.Exec(ctx, query,
			line.ID,
			orderID,
			line.ProductID,
			line.Quantity,
			line.PricePerUnit,
			line.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, order_number, status, subtotal_amount, tax_amount, shipping_amount, discount_amount, total_amount, currency, shipping_address, payment_method, payment_reference, created_at
		FROM orders
		WHERE id = $1`

	var (
		o            domain.Order
		shippingJSON []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.UserID,
		&o.OrderNumber,
		&o.Status,
		&o.SubtotalAmount,
		&o.TaxAmount,
		&o.ShippingAmount,
		&o.DiscountAmount,
		&o.TotalAmount,
		&o.Currency,
		&shippingJSON,
		&o.PaymentMethod,
		&o.PaymentReference,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if len(shippingJSON) > 0 {
		if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}

	lines, err := r.linesByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines

	return &o, nil
}

// ListByUserID returns the user's orders, newest first, without lines.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	query := `
		SELECT id, user_id, order_number, status, subtotal_amount, tax_amount, shipping_amount, discount_amount, total_amount, currency, shipping_address, payment_method, payment_reference, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			o            domain.Order
			shippingJSON []byte
		)
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.OrderNumber,
			&o.Status,
			&o.SubtotalAmount,
			&o.TaxAmount,
			&o.ShippingAmount,
			&o.DiscountAmount,
			&o.TotalAmount,
			&o.Currency,
			&shippingJSON,
			&o.PaymentMethod,
			&o.PaymentReference,
			&o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		if len(shippingJSON) > 0 {
			if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
				return nil, fmt.Errorf("unmarshal shipping address: %w", err)
			}
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	return orders, nil
}

func (r *OrderRepository) linesByOrderID(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	query := `
		SELECT id, order_id, product_id, quantity, price_per_unit, subtotal
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(
			&l.ID,
			&l.OrderID,
			&l.ProductID,
			&l.Quantity,
			&l.PricePerUnit,
			&l.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("scan order line row: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order line rows: %w", err)
	}

	if lines == nil {
		lines = []domain.OrderLine{}
	}

	return lines, nil
}
