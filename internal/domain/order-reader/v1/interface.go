package orderreaderv1

import (
	"context"

	orderbookv1 "github.com/funbux/exchange/internal/domain/orderbook/v1"
)

// OrderReader defines the interface for reading order requests from a stream.
type OrderReader interface {
	// ReadRequest reads and decodes the next order request
	ReadRequest(ctx context.Context) (*orderbookv1.OrderRequest, error)
	// Close closes the reader
	Close() error
}
