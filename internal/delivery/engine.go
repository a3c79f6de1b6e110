// Package delivery copies resolved channel messages to the requester, in
// order, with best-effort semantics per item.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Mraprguild8133/Filestore/internal/resolver"
	"github.com/Mraprguild8133/Filestore/internal/telegram"
)

// ErrDeliveryFailed means not a single item reached the requester. An empty
// result is never reported as success.
var ErrDeliveryFailed = errors.New("delivery failed")

var (
	deliveredItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filestore_delivered_items_total",
		Help: "Messages successfully copied to requesters.",
	})
	skippedItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filestore_skipped_items_total",
		Help: "Messages that could not be copied and were skipped.",
	})
)

// Transport is the slice of the Telegram client the engine needs.
type Transport interface {
	CopyMessage(ctx context.Context, src telegram.Handle, dest int64, opts telegram.CopyOptions) (telegram.Handle, error)
}

// Options configure every delivery made by one Engine.
type Options struct {
	// ProtectContent disables forwarding/saving on the copies.
	ProtectContent bool
	// CaptionTemplate, when non-empty, replaces the copy's caption;
	// "{filename}" expands to the stored display name. A template needing
	// a filename is skipped for items without a known name, and templates
	// referencing "{previouscaption}" keep the original caption verbatim:
	// the Bot API gives no way to read the source caption.
	CaptionTemplate string
	// ItemDelay is the pause between consecutive copies, backpressure
	// against per-chat flood control.
	ItemDelay time.Duration
}

// Engine performs deliveries. Safe for concurrent use; each call's working
// set is private.
type Engine struct {
	tg   Transport
	opts Options
	log  *slog.Logger
}

// New constructs an Engine.
func New(tg Transport, opts Options, log *slog.Logger) *Engine {
	return &Engine{tg: tg, opts: opts, log: log}
}

// Deliver copies refs to destChat in order and returns the handles of the
// copies that succeeded. Individual failures are logged and skipped; a
// rate-limit signal is honored for exactly the signaled duration and the
// item retried once. Zero successes yield ErrDeliveryFailed.
func (e *Engine) Deliver(ctx context.Context, refs []resolver.MessageRef, destChat int64) ([]telegram.Handle, error) {
	handles := make([]telegram.Handle, 0, len(refs))
	for i, ref := range refs {
		if i > 0 && e.opts.ItemDelay > 0 {
			if err := sleep(ctx, e.opts.ItemDelay); err != nil {
				return handles, err
			}
		}
		h, err := e.copyOnce(ctx, ref, destChat)
		var rle *telegram.RateLimitError
		if errors.As(err, &rle) {
			e.log.Warn("rate limited, backing off", "wait", rle.RetryAfter, "message", ref.MessageID)
			if err := sleep(ctx, rle.RetryAfter); err != nil {
				return handles, err
			}
			h, err = e.copyOnce(ctx, ref, destChat)
		}
		if err != nil {
			if ctx.Err() != nil {
				return handles, ctx.Err()
			}
			skippedItems.Inc()
			e.log.Error("copy failed, skipping item", "chat", ref.ChatID, "message", ref.MessageID, "err", err)
			continue
		}
		deliveredItems.Inc()
		handles = append(handles, h)
	}
	if len(handles) == 0 {
		return nil, fmt.Errorf("%d items: %w", len(refs), ErrDeliveryFailed)
	}
	return handles, nil
}

func (e *Engine) copyOnce(ctx context.Context, ref resolver.MessageRef, destChat int64) (telegram.Handle, error) {
	opts := telegram.CopyOptions{ProtectContent: e.opts.ProtectContent}
	tpl := e.opts.CaptionTemplate
	needsName := strings.Contains(tpl, "{filename}")
	applicable := tpl != "" && !strings.Contains(tpl, "{previouscaption}") && (!needsName || ref.Name != "")
	if applicable {
		opts.Caption = strings.ReplaceAll(tpl, "{filename}", ref.Name)
		opts.ParseMode = "HTML"
	}
	return e.tg.CopyMessage(ctx, telegram.Handle{ChatID: ref.ChatID, MessageID: ref.MessageID}, destChat, opts)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
