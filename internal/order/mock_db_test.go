package order

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// In-memory stand-in for the DB interface. Stock decrements are buffered on
// the transaction and only applied on Commit, mirroring the real thing.

type mockUser struct {
	name  string
	email string
}

type mockProduct struct {
	name   string
	price  string
	stock  int
	active bool
}

type insertedItem struct {
	orderID   string
	productID string
	quantity  int
	unitPrice decimal.Decimal
}

type insertedOrder struct {
	userID   string
	total    decimal.Decimal
	shipping any
	notes    any
}

type mockDB struct {
	users    map[string]mockUser
	products map[string]mockProduct

	beginErr      error
	commitErr     error
	userLookupErr error // pool-level name/email lookup
	failItemAt    int   // fail the nth order_items insert, 1-based
	failStockAt   int   // fail the nth stock decrement, 1-based

	lastTx  *mockTx
	txCount int
}

func newMockDB() *mockDB {
	return &mockDB{
		users: map[string]mockUser{
			testUserID: {name: "Alice Shopper", email: "alice@example.com"},
		},
		products: map[string]mockProduct{
			testProductA: {name: "Widget", price: "10.00", stock: 5, active: true},
			testProductB: {name: "Gadget", price: "5.00", stock: 2, active: true},
			inactiveProd: {name: "Retired Thing", price: "1.00", stock: 9, active: false},
		},
	}
}

func (d *mockDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if d.userLookupErr != nil {
		return mockRow{err: d.userLookupErr}
	}
	u, ok := d.users[args[0].(string)]
	if !ok {
		return mockRow{err: pgx.ErrNoRows}
	}
	return mockRow{values: []any{u.name, u.email}}
}

func (d *mockDB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	d.txCount++
	tx := &mockTx{db: d, pendingStock: map[string]int{}}
	d.lastTx = tx
	return tx, nil
}

type mockTx struct {
	db *mockDB

	pendingStock map[string]int
	lockedIDs    []string
	order        *insertedOrder
	items        []insertedItem

	itemExecs  int
	stockExecs int

	committed  bool
	rolledBack bool
}

func (tx *mockTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	switch {
	case strings.Contains(sql, "FROM users"):
		id := args[0].(string)
		if _, ok := tx.db.users[id]; !ok {
			return mockRow{err: pgx.ErrNoRows}
		}
		return mockRow{values: []any{id}}

	case strings.Contains(sql, "INSERT INTO orders"):
		tx.order = &insertedOrder{
			userID:   args[0].(string),
			total:    args[1].(decimal.Decimal),
			shipping: args[2],
			notes:    args[3],
		}
		return mockRow{values: []any{generatedOrderID}}
	}
	return mockRow{err: errors.New("unexpected query: " + sql)}
}

func (tx *mockTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	ids := args[0].([]string)
	tx.lockedIDs = append([]string(nil), ids...)

	rows := &mockRows{}
	for _, id := range ids {
		p, ok := tx.db.products[id]
		if !ok {
			continue
		}
		rows.rows = append(rows.rows, []any{id, p.name, p.price, p.stock, p.active})
	}
	return rows, nil
}

func (tx *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "order_items"):
		tx.itemExecs++
		if tx.db.failItemAt != 0 && tx.itemExecs == tx.db.failItemAt {
			return pgconn.CommandTag{}, errors.New("order_items insert failed")
		}
		tx.items = append(tx.items, insertedItem{
			orderID:   args[0].(string),
			productID: args[1].(string),
			quantity:  args[2].(int),
			unitPrice: args[3].(decimal.Decimal),
		})

	case strings.Contains(sql, "UPDATE products"):
		tx.stockExecs++
		if tx.db.failStockAt != 0 && tx.stockExecs == tx.db.failStockAt {
			return pgconn.CommandTag{}, errors.New("stock update failed")
		}
		tx.pendingStock[args[1].(string)] += args[0].(int)

	default:
		return pgconn.CommandTag{}, errors.New("unexpected exec: " + sql)
	}
	return pgconn.NewCommandTag("EXEC 1"), nil
}

func (tx *mockTx) Commit(ctx context.Context) error {
	if tx.db.commitErr != nil {
		return tx.db.commitErr
	}
	for id, dec := range tx.pendingStock {
		p := tx.db.products[id]
		p.stock -= dec
		tx.db.products[id] = p
	}
	tx.committed = true
	return nil
}

func (tx *mockTx) Rollback(ctx context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

type mockRow struct {
	values []any
	err    error
}

func (r mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.values, dest)
}

type mockRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *mockRows) Next() bool {
	if r.pos < len(r.rows) {
		r.pos++
		return true
	}
	return false
}

func (r *mockRows) Scan(dest ...any) error {
	return scanInto(r.rows[r.pos-1], dest)
}

func (r *mockRows) Err() error { return r.err }
func (r *mockRows) Close()     {}

func scanInto(values []any, dest []any) error {
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *bool:
			*d = v.(bool)
		default:
			return errors.New("unsupported scan dest")
		}
	}
	return nil
}

const generatedOrderID = "99999999-9999-4999-8999-999999999999"
