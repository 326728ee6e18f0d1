package orderbookv1

import (
	"github.com/shopspring/decimal"
)

// Row holds all liquidity resting at one exact price on one side of the
// book: a FIFO sequence of entries plus incrementally maintained
// aggregates. Row.Amount and Row.Value always equal the sums over the
// live entries.
type Row struct {
	Price   decimal.Decimal
	Side    Side
	Entries []*Entry

	Amount decimal.Decimal
	Value  decimal.Decimal
}

// NewRow creates an empty row at the given price.
func NewRow(price decimal.Decimal, side Side) *Row {
	return &Row{
		Price:   price,
		Side:    side,
		Entries: make([]*Entry, 0),
	}
}

// Push appends a new entry at the back of the FIFO queue and updates
// the row aggregates.
func (r *Row) Push(userID, orderID string, amount decimal.Decimal) *Entry {
	entry := &Entry{
		ID:     orderID,
		UserID: userID,
		Side:   r.Side,
		Price:  r.Price,
		Amount: amount,
		Value:  amount.Mul(r.Price),
	}
	r.Entries = append(r.Entries, entry)

	r.Amount = r.Amount.Add(entry.Amount)
	r.Value = r.Value.Add(entry.Value)

	return entry
}

// Reduce decrements the entry and row aggregates by the given amount
// and value. When the entry's amount reaches zero it is removed from
// the FIFO queue; the return value reports that removal so the owner
// can drop it from the id index.
func (r *Row) Reduce(entry *Entry, amount, value decimal.Decimal) bool {
	entry.Amount = entry.Amount.Sub(amount)
	entry.Value = entry.Value.Sub(value)

	r.Amount = r.Amount.Sub(amount)
	r.Value = r.Value.Sub(value)

	if !entry.Amount.IsZero() {
		return false
	}

	for i, e := range r.Entries {
		if e == entry {
			r.Entries = append(r.Entries[:i], r.Entries[i+1:]...)
			break
		}
	}
	return true
}

// Empty checks if the row has no entries left.
func (r *Row) Empty() bool {
	return len(r.Entries) == 0
}
