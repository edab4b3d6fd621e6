package imports

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/pkg/logger"
)

// Consumer executes import jobs published to the imports subscription.
type Consumer struct {
	runner       *Runner
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer constructs a consumer that watches the imports subscription.
func NewConsumer(runner *Runner, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if subscription == nil {
		return nil, errors.New("imports subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		runner:       runner,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	jobID, err := decodeJobID(msg)
	if err != nil {
		c.logg.Error(logCtx, "discarding malformed import message", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithJobID(logCtx, jobID.String())
	if err := c.runner.Run(logCtx, jobID, "worker"); err != nil {
		c.logg.Error(logCtx, "import run failed", err)
		if isTransientError(err) {
			return processResult{nack: true}
		}
		return processResult{ack: true}
	}
	return processResult{ack: true}
}

func decodeJobID(msg *pubsub.Message) (uuid.UUID, error) {
	if raw := strings.TrimSpace(msg.Attributes["job_id"]); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id, nil
		}
	}

	data := msg.Data
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		data = decoded
	}
	var payload jobMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return uuid.Nil, errors.New("message carries no job id")
	}
	return uuid.Parse(payload.JobID)
}
