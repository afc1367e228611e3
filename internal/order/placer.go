package order

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Placer executes the order-placement workflow. Each call runs on a single
// transaction: the referenced product rows are locked with FOR UPDATE so two
// concurrent orders can never both pass the stock check for the same product.
type Placer struct {
	db     DB
	logger *log.Logger
}

func NewPlacer(db DB, logger *log.Logger) *Placer {
	return &Placer{db: db, logger: logger}
}

// PlaceOrder validates in, then atomically creates the order with its items
// and decrements product stock. On success it returns the persisted order id,
// the server-computed total and the item count. A *Rejection error means
// nothing was persisted and the reason is safe to show the caller; any other
// error is an infrastructure failure.
func (p *Placer) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.Printf("rollback failed: %v", rbErr)
		}
	}()

	var userID string
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1`, in.UserID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rejectf("User %s not found", in.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	products, err := lockProducts(ctx, tx, in.Items)
	if err != nil {
		return nil, err
	}

	for _, it := range in.Items {
		prod, ok := products[it.ProductID]
		if !ok {
			return nil, rejectf("Product %s not found", it.ProductID)
		}
		if !prod.IsActive {
			return nil, rejectf("Product %q is not available", prod.Name)
		}
		if prod.StockQuantity < it.Quantity {
			return nil, rejectf("Insufficient stock for %q: requested %d, available %d",
				prod.Name, it.Quantity, prod.StockQuantity)
		}
	}

	total := decimal.Zero
	for _, it := range in.Items {
		line := products[it.ProductID].Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
	}

	var shipping, notes any
	if in.ShippingAddress != "" {
		shipping = in.ShippingAddress
	}
	if in.Notes != "" {
		notes = in.Notes
	}

	var orderID string
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, status, total_amount, shipping_address, notes)
		VALUES ($1, 'pending', $2, $3::jsonb, $4)
		RETURNING id
	`, in.UserID, total, shipping, notes).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	itemsCount := 0
	for _, it := range in.Items {
		prod := products[it.ProductID]

		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, orderID, it.ProductID, it.Quantity, prod.Price)
		if err != nil {
			return nil, fmt.Errorf("insert order_item: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $1, updated_at = now()
			WHERE id = $2
		`, it.Quantity, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}

		itemsCount += it.Quantity
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &PlaceOrderResult{
		OrderID:     orderID,
		TotalAmount: total,
		Status:      StatusPending,
		ItemsCount:  itemsCount,
		Message: fmt.Sprintf("Order placed successfully with %d item(s) totaling $%s",
			itemsCount, total.StringFixed(2)),
	}, nil
}

// lockProducts fetches every referenced product under FOR UPDATE. The lock
// covers exactly the rows of this order, so unrelated orders stay unblocked.
func lockProducts(ctx context.Context, tx Tx, items []ItemInput) (map[string]Product, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, name, price::text, stock_quantity, is_active
		FROM products
		WHERE id = ANY($1::uuid[])
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Product, len(items))
	for rows.Next() {
		var prod Product
		var price string
		if err := rows.Scan(&prod.ID, &prod.Name, &price, &prod.StockQuantity, &prod.IsActive); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		prod.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price for product %s: %w", prod.ID, err)
		}
		out[prod.ID] = prod
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("products rows: %w", err)
	}
	return out, nil
}
