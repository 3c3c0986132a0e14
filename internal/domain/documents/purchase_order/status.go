package purchase_order

import "stockroom/internal/core/apperror"

// Status is the lifecycle state of a purchase order.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusOrdered   Status = "ordered"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// transitions lists the manual status changes. StatusReceived is reached
// only through Receive.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusPending, StatusCancelled},
	StatusPending:   {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusOrdered, StatusCancelled},
	StatusOrdered:   {StatusCancelled},
	StatusReceived:  nil,
	StatusCancelled: nil,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further change is possible.
func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// CanTransition checks a manual status change from -> to.
func CanTransition(from, to Status) error {
	if !to.IsValid() {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status").
			WithDetail("value", string(to))
	}
	if to == StatusReceived {
		return apperror.NewInvalidState("purchase orders are marked received by receiving them").
			WithDetail("from", string(from))
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return apperror.NewInvalidTransition("purchase order", string(from), string(to))
}
