package order

import (
	"encoding/json"

	"github.com/google/uuid"
)

// isUUID accepts only the canonical 36-character textual form.
// uuid.Validate alone also admits braced, URN and bare-hex variants.
func isUUID(s string) bool {
	return len(s) == 36 && uuid.Validate(s) == nil
}

// Validate runs all input checks in a fixed order and stops at the first
// violation. It never touches storage; a rejection here must leave no trace.
func Validate(in PlaceOrderInput) error {
	if len(in.Items) == 0 {
		return &Rejection{Reason: "Order must contain at least one item"}
	}

	if !isUUID(in.UserID) {
		return &Rejection{Reason: "Invalid user_id format: must be a valid UUID"}
	}

	seen := make(map[string]struct{}, len(in.Items))
	for _, it := range in.Items {
		if !isUUID(it.ProductID) {
			return rejectf("Invalid product_id format: %s", it.ProductID)
		}
		if it.Quantity <= 0 {
			return rejectf("Invalid quantity for product %s: must be a positive integer", it.ProductID)
		}
		if _, dup := seen[it.ProductID]; dup {
			return rejectf("Duplicate product_id: %s. Combine quantities into a single item.", it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
	}

	if in.ShippingAddress != "" && !json.Valid([]byte(in.ShippingAddress)) {
		return &Rejection{Reason: "shipping_address must be a valid JSON string"}
	}

	return nil
}
