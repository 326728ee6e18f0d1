package orderbookv1

import (
	"github.com/shopspring/decimal"
)

// OrderSnapshot captures a resting order at the moment it is cancelled.
type OrderSnapshot struct {
	ID     string          `json:"id"`
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
	Value  decimal.Decimal `json:"value"`
	Side   Side            `json:"side"`
}

// EntryView is one resting order inside a book snapshot.
type EntryView struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Value  string `json:"value"`
}

// LevelView is one price level inside a book snapshot, entries in FIFO order.
type LevelView struct {
	Price   string      `json:"price"`
	Amount  string      `json:"amount"`
	Value   string      `json:"value"`
	Entries []EntryView `json:"entries"`
}

// BookSnapshot is a read-only, point-in-time view of the whole book.
// Rows are ordered best price first on both sides.
type BookSnapshot struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`

	Buy  []LevelView `json:"buy"`
	Sell []LevelView `json:"sell"`

	BuyAmount  string `json:"buyAmount"`
	BuyValue   string `json:"buyValue"`
	SellAmount string `json:"sellAmount"`
	SellValue  string `json:"sellValue"`
}
