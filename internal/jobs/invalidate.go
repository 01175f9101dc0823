package jobs

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Invalidator is implemented by *cache.Facade.
type Invalidator interface {
	Invalidate(ctx context.Context, resource string, params map[string]string) (int, error)
}

func NewInvalidateTask(p InvalidatePayload) (*asynq.Task, error) {
	if strings.TrimSpace(p.Resource) == "" {
		return nil, errors.New("invalidate: resource is required")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "marshal invalidate payload")
	}
	return asynq.NewTask(TaskInvalidateCache, payload), nil
}

// Enqueuer hands invalidations to the worker.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(opt asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opt)}
}

func (e *Enqueuer) EnqueueInvalidate(ctx context.Context, p InvalidatePayload) (string, error) {
	task, err := NewInvalidateTask(p)
	if err != nil {
		return "", err
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueCache),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return "", errors.Wrap(err, "enqueue invalidate")
	}

	log.Info().Str("task_id", info.ID).Str("queue", info.Queue).Str("resource", p.Resource).Msg("invalidation enqueued")
	return info.ID, nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// HandleInvalidate runs queued invalidations. Malformed payloads are
// dropped; store errors are returned so asynq retries them.
func HandleInvalidate(inv Invalidator) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p InvalidatePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			log.Error().Err(err).Str("task", t.Type()).Msg("bad invalidate payload")
			return errors.Wrapf(asynq.SkipRetry, "decode payload: %v", err)
		}
		if strings.TrimSpace(p.Resource) == "" {
			log.Error().Str("task", t.Type()).Msg("invalidate payload without resource")
			return errors.Wrap(asynq.SkipRetry, "resource is required")
		}

		start := time.Now()
		deleted, err := inv.Invalidate(ctx, p.Resource, p.Params)
		if err != nil {
			log.Warn().Err(err).Str("resource", p.Resource).Msg("invalidate failed, will retry")
			return err
		}

		log.Info().
			Str("resource", p.Resource).
			Int("deleted", deleted).
			Dur("duration", time.Since(start)).
			Msg("invalidate done")
		return nil
	}
}
