package order

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
)

// StatusLogger handles order-status-changed event deliveries. It only logs;
// failures are swallowed so the trigger is never retried because of us.
type StatusLogger struct {
	db     DB
	logger *log.Logger
}

func NewStatusLogger(db DB, logger *log.Logger) *StatusLogger {
	return &StatusLogger{db: db, logger: logger}
}

// LogChange records the status transition carried by one event. When an order
// reaches delivered, the owning user is looked up for a friendlier log line.
func (s *StatusLogger) LogChange(ctx context.Context, eventID, trigger, op string, oldRow, newRow *OrderRow) {
	s.logger.Printf("[event] id=%s trigger=%s op=%s", eventID, trigger, op)

	if newRow == nil {
		s.logger.Printf("[event] no new row data, skipping")
		return
	}

	oldStatus := "(none)"
	if oldRow != nil {
		oldStatus = oldRow.Status
	}
	s.logger.Printf("[event] order %s: status %s -> %s", newRow.ID, oldStatus, newRow.Status)

	if oldRow != nil && oldRow.Status != newRow.Status &&
		!CanTransition(Status(oldRow.Status), Status(newRow.Status)) {
		s.logger.Printf("[event] order %s: transition %s -> %s is outside the fulfillment workflow",
			newRow.ID, oldRow.Status, newRow.Status)
	}

	if Status(newRow.Status) != StatusDelivered {
		return
	}

	var name, email string
	err := s.db.QueryRow(ctx, `SELECT name, email FROM users WHERE id = $1`, newRow.UserID).Scan(&name, &email)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// user gone since the order was placed; nothing to announce
	case err != nil:
		s.logger.Printf("[event] failed to look up user %s: %v", newRow.UserID, err)
	default:
		s.logger.Printf("[event] order %s delivered to %s (%s)", newRow.ID, name, email)
	}
}
