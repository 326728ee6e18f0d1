package orderbookv1

import (
	"github.com/shopspring/decimal"
)

// Side represents a trading direction.
type Side string

const (
	// SideBuy represents the buy (bid) side of the book.
	SideBuy Side = "BUY"
	// SideSell represents the sell (ask) side of the book.
	SideSell Side = "SELL"
)

// Valid checks that the side is one of the two known directions.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the other trading direction.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Entry is a single resting (or partially filled) order inside a row.
// Value always equals Amount * row price; an entry whose amount reaches
// zero is removed from its row and from the book's id index.
type Entry struct {
	ID     string
	UserID string
	Side   Side
	Price  decimal.Decimal
	Amount decimal.Decimal
	Value  decimal.Decimal
}

// OrderType represents the type of an inbound order request.
type OrderType string

const (
	// OrderTypePlace represents a request to place a new order.
	OrderTypePlace OrderType = "PLACE"
	// OrderTypeCancel represents a request to cancel a resting order.
	OrderTypeCancel OrderType = "CANCEL"
)

// OrderRequest represents a request read from the order stream.
// Price zero (or absent) denotes a market order.
type OrderRequest struct {
	Type    OrderType       `json:"type"`
	OrderID string          `json:"orderID,omitempty"`
	UserID  string          `json:"userID,omitempty"`
	Side    Side            `json:"side,omitempty"`
	Amount  decimal.Decimal `json:"amount,omitempty"`
	Price   decimal.Decimal `json:"price,omitempty"`

	Offset int64 `json:"-"` // Offset of the request in the stream
}
