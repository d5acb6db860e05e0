package model

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending           OrderStatus = "pending"
	StatusOrdered           OrderStatus = "ordered"
	StatusPartiallyReceived OrderStatus = "partially_received"
	StatusReceived          OrderStatus = "received"
	StatusStockUpdated      OrderStatus = "stock_updated"
	StatusDeclined          OrderStatus = "declined"
)

// transitions lists the legal next states for each status.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:           {StatusOrdered, StatusDeclined},
	StatusOrdered:           {StatusReceived, StatusPartiallyReceived},
	StatusPartiallyReceived: {StatusReceived},
	StatusReceived:          {StatusStockUpdated},
	StatusStockUpdated:      nil,
	StatusDeclined:          nil,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusStockUpdated || s == StatusDeclined
}

// CanTransition reports whether an order may move from one status to
// another. Staying in the same status is always allowed.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return from.Valid()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
