package engine

import (
	"context"
	"sync"
	"time"

	eventv1 "github.com/funbux/exchange/internal/domain/event/v1"
	ledgerv1 "github.com/funbux/exchange/internal/domain/ledger/v1"
	orderreaderv1 "github.com/funbux/exchange/internal/domain/order-reader/v1"
	orderbookv1 "github.com/funbux/exchange/internal/domain/orderbook/v1"
	"github.com/funbux/exchange/pkg/config"
	"github.com/funbux/exchange/pkg/logger"
	"github.com/shopspring/decimal"
)

type requestKind int

const (
	requestPlace requestKind = iota
	requestCancel
	requestSnapshot
)

// request is one operation queued behind the single worker. Mutations
// carry an outcome channel; snapshots carry their own reply channel.
type request struct {
	kind requestKind
	ctx  context.Context

	userID  string
	side    orderbookv1.Side
	amount  decimal.Decimal
	price   decimal.Decimal
	orderID string

	outcome  chan bool
	snapshot chan *orderbookv1.BookSnapshot
}

// Engine is the matching engine for one instrument. The book and the
// ledger carry no locking of their own: every mutating operation runs
// on the single worker goroutine, in submission order, and a matching
// walk stays tentative until the balance gate has passed, so a failed
// operation leaves no partial state behind.
type Engine struct {
	// Core components
	book        orderbookv1.Orderbook
	ledger      ledgerv1.Ledger
	orderReader orderreaderv1.OrderReader
	logger      logger.Interface
	config      *config.Config

	requests chan request
	events   chan eventv1.Event

	// Shutdown coordination
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a new instance of Engine with the provided
// dependencies. orderReader may be nil when orders are submitted
// directly through PlaceOrder/CancelOrder.
func NewEngine(
	book orderbookv1.Orderbook,
	ledger ledgerv1.Ledger,
	orderReader orderreaderv1.OrderReader,
	logger logger.Interface,
	config *config.Config,
) *Engine {
	return NewEngineWithOptions(book, ledger, orderReader, logger, config, DefaultEngineOptions())
}

// NewEngineWithOptions creates a new engine with custom options
func NewEngineWithOptions(
	book orderbookv1.Orderbook,
	ledger ledgerv1.Ledger,
	orderReader orderreaderv1.OrderReader,
	logger logger.Interface,
	config *config.Config,
	options *Options,
) *Engine {
	return &Engine{
		book:        book,
		ledger:      ledger,
		orderReader: orderReader,
		logger:      logger,
		config:      config,
		requests:    make(chan request, options.QueueDepth),
		events:      make(chan eventv1.Event, options.EventBufferDepth),
	}
}

// Start launches the worker and, when an order reader is wired, the
// ingestion loop.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go e.runOrderProcessor()

	if e.orderReader != nil {
		e.wg.Add(1)
		go e.runOrderReader()
	}

	e.logger.Info("Engine started",
		logger.Field{Key: "base", Value: e.config.BaseTicker},
		logger.Field{Key: "quote", Value: e.config.QuoteTicker},
	)

	return nil
}

// Stop gracefully shuts down the engine
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	// Wait for goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Engine stopped gracefully")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Engine stop timeout exceeded")
		return ctx.Err()
	}
}

// Events returns the outbound book event channel. Delivery is best
// effort: events are dropped when the buffer is full.
func (e *Engine) Events() <-chan eventv1.Event {
	return e.events
}

// PlaceOrder submits a place operation and waits for its outcome.
// Price zero denotes a market order. Returns false on rejection
// (malformed input or insufficient balance) or when ctx expires first.
func (e *Engine) PlaceOrder(ctx context.Context, userID string, side orderbookv1.Side, amount, price decimal.Decimal) bool {
	req := request{
		kind:    requestPlace,
		ctx:     ctx,
		userID:  userID,
		side:    side,
		amount:  amount,
		price:   price,
		outcome: make(chan bool, 1),
	}

	if !e.submit(ctx, req) {
		return false
	}

	select {
	case ok := <-req.outcome:
		return ok
	case <-ctx.Done():
		return false
	}
}

// CancelOrder submits a cancel operation and waits for its outcome.
// Returns false when the order id is not resting in the book.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) bool {
	req := request{
		kind:    requestCancel,
		ctx:     ctx,
		orderID: orderID,
		outcome: make(chan bool, 1),
	}

	if !e.submit(ctx, req) {
		return false
	}

	select {
	case ok := <-req.outcome:
		return ok
	case <-ctx.Done():
		return false
	}
}

// OrderBook returns a point-in-time snapshot of the book. The request
// rides the same queue as mutations, so it never observes a mutation
// mid-flight.
func (e *Engine) OrderBook(ctx context.Context) *orderbookv1.BookSnapshot {
	req := request{
		kind:     requestSnapshot,
		ctx:      ctx,
		snapshot: make(chan *orderbookv1.BookSnapshot, 1),
	}

	if !e.submit(ctx, req) {
		return nil
	}

	select {
	case snapshot := <-req.snapshot:
		return snapshot
	case <-ctx.Done():
		return nil
	}
}

// Balances returns a read-only view of the ledger.
func (e *Engine) Balances(ctx context.Context) map[string]map[string]string {
	return e.ledger.Balances(ctx)
}

func (e *Engine) submit(ctx context.Context, req request) bool {
	select {
	case e.requests <- req:
		return true
	case <-ctx.Done():
		return false
	}
}

// runOrderProcessor is the single worker: it owns every book and ledger
// mutation and processes requests strictly in submission order.
func (e *Engine) runOrderProcessor() {
	defer e.wg.Done()

	e.logger.Info("Starting order processor")

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Order processor shutting down")
			return
		case req := <-e.requests:
			switch req.kind {
			case requestPlace:
				req.outcome <- e.placeOrder(req.ctx, req.userID, req.side, req.amount, req.price)
			case requestCancel:
				req.outcome <- e.cancelOrder(req.ctx, req.orderID)
			case requestSnapshot:
				req.snapshot <- e.book.Snapshot()
			}
		}
	}
}

// runOrderReader pulls order requests from the stream and feeds them
// through the same queue as direct callers.
func (e *Engine) runOrderReader() {
	defer e.wg.Done()

	e.logger.Info("Starting order reader")

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Order reader shutting down")
			e.orderReader.Close()
			return
		default:
			req, err := e.orderReader.ReadRequest(e.ctx)
			if err != nil {
				// Simple backoff
				time.Sleep(100 * time.Millisecond)
				continue
			}

			switch req.Type {
			case orderbookv1.OrderTypePlace:
				e.PlaceOrder(e.ctx, req.UserID, req.Side, req.Amount, req.Price)
			case orderbookv1.OrderTypeCancel:
				e.CancelOrder(e.ctx, req.OrderID)
			default:
				e.logger.Warn("Unknown order request type",
					logger.Field{Key: "type", Value: req.Type},
					logger.Field{Key: "offset", Value: req.Offset},
				)
			}
		}
	}
}

// emit publishes an event without ever blocking the worker.
func (e *Engine) emit(event eventv1.Event) {
	select {
	case e.events <- event:
	default:
		e.logger.Warn("Event buffer full, dropping event",
			logger.Field{Key: "eventType", Value: event.Type},
		)
	}
}
