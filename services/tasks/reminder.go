package tasks

import (
	"encoding/json"
	"time"

	"medvisit/models"

	"github.com/hibiken/asynq"
)

const TypeSendReminder = "reminder:send"

// ReminderQueue is the asynq queue reminders are enqueued onto.
const ReminderQueue = "reminders"

func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt), asynq.Queue(ReminderQueue)}

	return task, opts, nil
}
