package order

import (
	"errors"
	"fmt"
)

// Rejection is a refusal the caller can act on: malformed input or a business
// rule violation. The reason is a stable, client-facing message. Anything that
// is not a Rejection is an infrastructure failure and must not reach clients
// verbatim.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

func rejectf(format string, args ...any) *Rejection {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

// IsRejection unwraps err as a Rejection, if it is one.
func IsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
