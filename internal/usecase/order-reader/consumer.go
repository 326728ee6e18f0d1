package orderreader

import (
	"context"
	"encoding/json"

	orderbookv1 "github.com/funbux/exchange/internal/domain/orderbook/v1"
	"github.com/funbux/exchange/pkg/config"
	"github.com/funbux/exchange/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Reader represents a Kafka Reader for consuming order requests from the order topic.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface
}

// NewReader creates a new Kafka reader for consuming order requests.
func NewReader(cfg config.OrderReaderConfig, log logger.Interface) *Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

// logError is a helper method to log errors consistently
func (r *Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// ReadRequest reads a message from the order topic and parses it as an OrderRequest.
func (r *Reader) ReadRequest(ctx context.Context) (*orderbookv1.OrderRequest, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		r.logError(err, "ReadMessage")
		return nil, err
	}

	var request orderbookv1.OrderRequest
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		r.logError(err, "UnmarshalOrderRequest")
		return nil, err
	}

	r.logger.Debug("ReadRequest",
		logger.Field{Key: "type", Value: request.Type},
		logger.Field{Key: "userID", Value: request.UserID},
		logger.Field{Key: "side", Value: request.Side},
		logger.Field{Key: "amount", Value: request.Amount},
		logger.Field{Key: "price", Value: request.Price},
	)

	request.Offset = msg.Offset

	return &request, nil
}

// Close properly closes the Kafka reader.
func (r *Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}
