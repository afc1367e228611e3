package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/storefront-demo/order-actions-go/internal/hasura"
	"github.com/storefront-demo/order-actions-go/internal/order"
)

// OrderPlacer matches *order.Placer so handlers can be tested with fakes.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (*order.PlaceOrderResult, error)
}

// StatusChangeHandler matches *order.StatusLogger.
type StatusChangeHandler interface {
	LogChange(ctx context.Context, eventID, trigger, op string, oldRow, newRow *order.OrderRow)
}

// OrderPlacedPublisher matches *events.Publisher. Nil disables publishing.
type OrderPlacedPublisher interface {
	PublishOrderPlaced(ctx context.Context, userID string, res *order.PlaceOrderResult) error
}

type Handler struct {
	placer OrderPlacer
	status StatusChangeHandler
	pub    OrderPlacedPublisher
	logger *log.Logger
}

func NewHandler(placer OrderPlacer, status StatusChangeHandler, pub OrderPlacedPublisher, logger *log.Logger) *Handler {
	return &Handler{placer: placer, status: status, pub: pub, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var payload hasura.ActionPayload[order.PlaceOrderInput]
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in := payload.Input.Input

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.placer.PlaceOrder(ctx, in)
	if err != nil {
		if rej, ok := order.IsRejection(err); ok {
			writeMessage(w, http.StatusBadRequest, rej.Reason)
			return
		}
		h.logger.Printf("place order: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error while placing order")
		return
	}

	// fire-and-forget: a lost event never fails the placed order
	if h.pub != nil {
		if err := h.pub.PublishOrderPlaced(ctx, in.UserID, res); err != nil {
			h.logger.Printf("publish OrderPlaced for order %s: %v", res.OrderID, err)
		}
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) OrderStatusChanged(w http.ResponseWriter, r *http.Request) {
	var payload hasura.EventPayload[order.OrderRow]
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	h.status.LogChange(r.Context(), payload.ID, payload.Trigger.Name, payload.Event.Op,
		payload.Event.Data.Old, payload.Event.Data.New)

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
