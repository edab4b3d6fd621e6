package imports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/pkg/logger"
)

const publishTimeout = 10 * time.Second

// jobMessage is the payload published for each created import job.
type jobMessage struct {
	JobID string `json:"job_id"`
}

// PubSubDispatcher publishes created jobs for the worker to execute.
type PubSubDispatcher struct {
	publisher *pubsub.Publisher
}

// NewPubSubDispatcher wraps an import-topic publisher.
func NewPubSubDispatcher(publisher *pubsub.Publisher) (*PubSubDispatcher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	return &PubSubDispatcher{publisher: publisher}, nil
}

func (d *PubSubDispatcher) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	payload, err := json.Marshal(jobMessage{JobID: jobID.String()})
	if err != nil {
		return fmt.Errorf("marshal job message: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := d.publisher.Publish(publishCtx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"job_id": jobID.String(),
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish import job: %w", err)
	}
	return nil
}

// InlineDispatcher runs jobs in-process, for deployments without the
// async worker.
type InlineDispatcher struct {
	runner *Runner
	logg   *logger.Logger
}

// NewInlineDispatcher builds a dispatcher that executes jobs in a background goroutine.
func NewInlineDispatcher(runner *Runner, logg *logger.Logger) (*InlineDispatcher, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &InlineDispatcher{runner: runner, logg: logg}, nil
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	// Detach from the request context so the job survives the response.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		if err := d.runner.Run(runCtx, jobID, "inline"); err != nil {
			logCtx := d.logg.WithJobID(runCtx, jobID.String())
			d.logg.Error(logCtx, "inline import run failed", err)
		}
	}()
	return nil
}
