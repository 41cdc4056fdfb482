package kafka

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// FetchRatesCommand is the inbound trigger payload. Its only content is
// the time the trigger fired; the reaction is always to run exactly one
// ingestion cycle.
type FetchRatesCommand struct {
	TriggeredAt time.Time `json:"triggered_at"`
}

// CycleFunc runs one ingestion cycle.
type CycleFunc func(ctx context.Context) error

// TriggerConsumer reads trigger messages from a Kafka topic and invokes
// the ingestion cycle once per message. Messages are handled one at a
// time: cycles are idempotent per symbol, but concurrent cycles racing
// on the same symbol's read-modify-write would contend on the store.
type TriggerConsumer struct {
	reader  *kafkago.Reader
	runOnce CycleFunc
	logger  *logrus.Logger
}

// NewTriggerConsumer creates a trigger consumer around a configured reader.
func NewTriggerConsumer(reader *kafkago.Reader, runOnce CycleFunc, logger *logrus.Logger) *TriggerConsumer {
	return &TriggerConsumer{
		reader:  reader,
		runOnce: runOnce,
		logger:  logger,
	}
}

// Run blocks consuming trigger messages until the context is cancelled.
// A malformed payload is logged and committed (there is nothing to retry);
// a failed cycle is logged and the message is still committed, since the
// next scheduled trigger is the retry mechanism.
func (c *TriggerConsumer) Run(ctx context.Context) error {
	c.logger.WithFields(logrus.Fields{
		"topic":    c.reader.Config().Topic,
		"group_id": c.reader.Config().GroupID,
	}).Info("trigger consumer started")

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("trigger consumer stopping")
				return nil
			}
			c.logger.WithError(err).Error("failed to fetch trigger message")
			continue
		}

		var command FetchRatesCommand
		if err := json.Unmarshal(message.Value, &command); err != nil {
			c.logger.WithError(err).Warn("malformed trigger payload, discarding")
			c.commit(ctx, message)
			continue
		}

		c.logger.WithField("triggered_at", command.TriggeredAt).Info("trigger received, running ingestion cycle")
		if err := c.runOnce(ctx); err != nil {
			c.logger.WithError(err).Error("ingestion cycle failed, awaiting next trigger")
		}

		c.commit(ctx, message)
	}
}

func (c *TriggerConsumer) commit(ctx context.Context, message kafkago.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil && ctx.Err() == nil {
		c.logger.WithError(err).Error("failed to commit trigger message")
	}
}
