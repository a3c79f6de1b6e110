package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// BroadcastTask is scheduled when an operator runs /broadcast.
	BroadcastTask = "broadcast:send"
)

// BroadcastPayload is serialized into the task payload so the worker knows
// which message to fan out.
type BroadcastPayload struct {
	FromChatID  int64 `json:"from_chat_id"`
	MessageID   int   `json:"message_id"`
	RequestedBy int64 `json:"requested_by"`
}

// EnqueueBroadcast enqueues a broadcast job.
func EnqueueBroadcast(ctx context.Context, client *asynq.Client, payload BroadcastPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(BroadcastTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue broadcast task: %w", err)
	}
	return nil
}
