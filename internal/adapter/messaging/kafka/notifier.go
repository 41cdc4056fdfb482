package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ratewatch/internal/domain"
	"github.com/sirupsen/logrus"
)

// RateChangeMessage is the wire contract published when an instrument's
// rate moved significantly.
type RateChangeMessage struct {
	InstrumentSymbol  string          `json:"instrument_symbol"`
	CurrentRateAmount decimal.Decimal `json:"current_rate_amount"`
	Currency          string          `json:"currency"`
	Timestamp         time.Time       `json:"timestamp"`
}

// Notifier publishes rate change notifications to a Kafka topic.
// It implements domain.RateChangeNotifier.
type Notifier struct {
	writer *kafkago.Writer
	clock  domain.Clock
	logger *logrus.Logger
}

// NewNotifier creates a Kafka-backed notifier.
func NewNotifier(writer *kafkago.Writer, clock domain.Clock, logger *logrus.Logger) *Notifier {
	return &Notifier{
		writer: writer,
		clock:  clock,
		logger: logger,
	}
}

// NotifyRateChange publishes one RateChangeMessage keyed by symbol so
// notifications for the same instrument stay ordered within a partition.
func (n *Notifier) NotifyRateChange(ctx context.Context, symbol string, rate domain.Money) error {
	message := RateChangeMessage{
		InstrumentSymbol:  symbol,
		CurrentRateAmount: rate.Amount(),
		Currency:          rate.Currency(),
		Timestamp:         n.clock.Now(),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("serialize rate change message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = n.writer.WriteMessages(writeCtx, kafkago.Message{
		Key:   []byte(symbol),
		Value: payload,
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"rate":   rate.String(),
	}).Info("published rate change notification")
	return nil
}
