package orderbookv1

import (
	"github.com/shopspring/decimal"
)

// Orderbook defines the interface for the single-instrument order book.
//
// The book owns both sides, the per-side aggregates and the order-id
// index; it performs no locking of its own and expects a single writer.
type Orderbook interface {
	// Insert finds or creates the row at price on the given side and
	// appends a new resting entry to it.
	Insert(side Side, userID, orderID string, price, amount decimal.Decimal) (*Entry, error)
	// Reduce decrements an entry (and the row/side aggregates) by the
	// given amount and value, deleting the entry and its row when drained.
	Reduce(entry *Entry, amount, value decimal.Decimal)
	// Remove fully removes an entry from the book.
	Remove(entry *Entry)
	// RemoveRow drains every entry of the row at price on the given side.
	RemoveRow(side Side, price decimal.Decimal)
	// Cancel removes the entry with the given order id, returning a
	// snapshot of it, or nil when the id is not resting.
	Cancel(orderID string) *OrderSnapshot
	// Entry looks up a live entry by order id.
	Entry(orderID string) (*Entry, bool)
	// BestRow returns the best-priced row of a side, nil when empty.
	BestRow(side Side) *Row
	// WalkRows visits a side's rows best price first until fn returns false.
	WalkRows(side Side, fn func(*Row) bool)

	SideAmount(side Side) decimal.Decimal
	SideValue(side Side) decimal.Decimal

	// Snapshot produces a read-only view of the whole book.
	Snapshot() *BookSnapshot
	// Validate checks the entry/row/side aggregate invariants.
	Validate() error
}
