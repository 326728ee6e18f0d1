package eventv1

import (
	"encoding/json"

	orderbookv1 "github.com/funbux/exchange/internal/domain/orderbook/v1"
	"github.com/shopspring/decimal"
)

// Type represents the kind of a book event.
type Type string

const (
	// TypePlace is emitted when an order rests on the book.
	TypePlace Type = "place"
	// TypeTrade is emitted once per fill, from each party's perspective.
	TypeTrade Type = "trade"
	// TypeCancel is emitted when a resting order is cancelled.
	TypeCancel Type = "cancel"
)

// PlacePayload describes an order (or its remainder) resting on the book.
type PlacePayload struct {
	UserID string           `json:"userId"`
	Side   orderbookv1.Side `json:"side"`
	Price  decimal.Decimal  `json:"price"`
	Amount decimal.Decimal  `json:"amount"`
}

// TradePayload describes one fill from one party's perspective.
type TradePayload struct {
	UserID string           `json:"userId"`
	Side   orderbookv1.Side `json:"side"`
	Price  decimal.Decimal  `json:"price"`
	Amount decimal.Decimal  `json:"amount"`
}

// CancelPayload describes a cancelled resting order.
type CancelPayload struct {
	ID     string           `json:"id"`
	UserID string           `json:"userId"`
	Amount decimal.Decimal  `json:"amount"`
	Value  decimal.Decimal  `json:"value"`
	Side   orderbookv1.Side `json:"side"`
}

// Event is a single book notification with its typed payload.
type Event struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// NewPlace creates a place event.
func NewPlace(payload PlacePayload) Event {
	return Event{Type: TypePlace, Payload: payload}
}

// NewTrade creates a trade event.
func NewTrade(payload TradePayload) Event {
	return Event{Type: TypeTrade, Payload: payload}
}

// NewCancel creates a cancel event.
func NewCancel(payload CancelPayload) Event {
	return Event{Type: TypeCancel, Payload: payload}
}

// ToBytes converts the event to a byte array.
func ToBytes(event Event) []byte {
	buf, err := json.Marshal(event)
	if err != nil {
		return nil
	}

	return buf
}
