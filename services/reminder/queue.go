package reminder

import (
	"context"
	"fmt"
	"time"

	"medvisit/models"
	"medvisit/services/tasks"

	"github.com/hibiken/asynq"
)

// JobQueue is the deferred-execution mechanism: enqueue a payload to fire at
// an instant and get back a handle that can later remove the job. Any
// durable delayed-task queue satisfies this.
type JobQueue interface {
	Schedule(ctx context.Context, payload models.ReminderPayload, fireAt time.Time) (string, error)
	Remove(ctx context.Context, jobID string) error
}

// AsynqQueue backs JobQueue with a Redis-based asynq client.
type AsynqQueue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

func NewAsynqQueue(redisOpts asynq.RedisClientOpt) *AsynqQueue {
	return &AsynqQueue{
		Client:    asynq.NewClient(redisOpts),
		Inspector: asynq.NewInspector(redisOpts),
	}
}

func (q *AsynqQueue) Schedule(ctx context.Context, payload models.ReminderPayload, fireAt time.Time) (string, error) {
	task, opts, err := tasks.NewReminderTask(payload, fireAt)
	if err != nil {
		return "", fmt.Errorf("failed to build reminder task: %w", err)
	}
	info, err := q.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue reminder task: %w", err)
	}
	return info.ID, nil
}

func (q *AsynqQueue) Remove(ctx context.Context, jobID string) error {
	if err := q.Inspector.DeleteTask(tasks.ReminderQueue, jobID); err != nil {
		return fmt.Errorf("failed to remove reminder task %s: %w", jobID, err)
	}
	return nil
}
