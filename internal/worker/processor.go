// Package worker runs the asynq side of broadcasts: fanning one message out
// to every reachable user without tripping flood control.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Mraprguild8133/Filestore/internal/queue"
	"github.com/Mraprguild8133/Filestore/internal/telegram"
)

var broadcastSends = promauto.NewCounter(prometheus.CounterOpts{
	Name: "filestore_broadcast_sends_total",
	Help: "Messages delivered by broadcast fan-out.",
})

// Store is the persistence slice the worker needs.
type Store interface {
	ListActiveUsers(ctx context.Context) ([]int64, error)
	DeactivateUser(ctx context.Context, id int64) error
}

// Transport is the Telegram slice the worker needs.
type Transport interface {
	CopyMessage(ctx context.Context, src telegram.Handle, dest int64, opts telegram.CopyOptions) (telegram.Handle, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	store Store
	tg    Transport
	// pause between sends; Telegram allows roughly 30 messages per second
	// across all chats for bots.
	sendDelay time.Duration
	log       *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(store Store, tg Transport, log *slog.Logger) *Processor {
	return &Processor{store: store, tg: tg, sendDelay: 50 * time.Millisecond, log: log}
}

// Handler registers the broadcast job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.BroadcastTask, p.handleBroadcast)
	return mux
}

func (p *Processor) handleBroadcast(ctx context.Context, task *asynq.Task) error {
	var payload queue.BroadcastPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	users, err := p.store.ListActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	src := telegram.Handle{ChatID: payload.FromChatID, MessageID: payload.MessageID}
	var sent, blocked, failed int
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := p.send(ctx, src, userID)
		switch {
		case err == nil:
			sent++
			broadcastSends.Inc()
		case telegram.IsForbidden(err):
			blocked++
			if err := p.store.DeactivateUser(ctx, userID); err != nil {
				p.log.Error("deactivate blocked user", "user", userID, "err", err)
			}
		default:
			failed++
			p.log.Warn("broadcast send failed", "user", userID, "err", err)
		}
		if p.sendDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.sendDelay):
			}
		}
	}
	p.log.Info("broadcast finished",
		"requested_by", payload.RequestedBy, "sent", sent, "blocked", blocked, "failed", failed)
	return nil
}

// send copies the broadcast message to one user, waiting out a single
// rate-limit signal before retrying.
func (p *Processor) send(ctx context.Context, src telegram.Handle, userID int64) error {
	_, err := p.tg.CopyMessage(ctx, src, userID, telegram.CopyOptions{})
	var rle *telegram.RateLimitError
	if errors.As(err, &rle) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rle.RetryAfter):
		}
		_, err = p.tg.CopyMessage(ctx, src, userID, telegram.CopyOptions{})
	}
	return err
}
