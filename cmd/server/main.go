package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/funbux/exchange/internal/app/engine"
	eventpublisher "github.com/funbux/exchange/internal/usecase/event-publisher"
	"github.com/funbux/exchange/internal/usecase/ledger"
	orderreader "github.com/funbux/exchange/internal/usecase/order-reader"
	"github.com/funbux/exchange/internal/usecase/orderbook"
	"github.com/funbux/exchange/pkg/config"
	"github.com/funbux/exchange/pkg/logger"
	"github.com/shopspring/decimal"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	var err error
	cfg = &config.Config{}
	err = config.Load(cfg)
	if err != nil {
		panic(err)
	}

	logger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}

	log = logger
}

func main() {
	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	defaultBalance, err := decimal.NewFromString(cfg.DefaultBalance)
	if err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "parse_default_balance",
		})
		return
	}

	// Initialize components
	book := orderbook.NewBook(cfg.BaseTicker, cfg.QuoteTicker)
	userLedger := ledger.NewLedger(defaultBalance)
	oReader := orderreader.NewReader(cfg.OrderReaderConfig, log)
	publisher := eventpublisher.NewPublisher(cfg.EventPublisherConfig, log)
	engine := app.NewEngine(
		book,
		userLedger,
		oReader,
		log,
		cfg,
	)

	// Start the engine
	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
		return
	}

	// Fan book events out to the event topic
	go publisher.Run(ctx, engine.Events())

	log.Info("Exchange started successfully",
		logger.Field{Key: "base", Value: cfg.BaseTicker},
		logger.Field{Key: "quote", Value: cfg.QuoteTicker},
	)

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{
		Key:   "signal",
		Value: sig.String(),
	})

	// Cancel the main context to signal shutdown
	cancel()

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the engine gracefully
	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "stop_engine",
		})
	}

	if err := publisher.Close(); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "close_event_publisher",
		})
	}

	log.Info("Exchange shutdown complete")
}
