// Package autodelete removes delivered copies after a configured delay and
// swaps the countdown notice for a recovery link. The whole feature is
// best-effort: failures are logged, never surfaced to the requester.
package autodelete

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Mraprguild8133/Filestore/internal/telegram"
)

var (
	scheduledTasks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filestore_autodelete_tasks_total",
		Help: "Auto-delete tasks scheduled.",
	})
	deletedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filestore_autodelete_messages_total",
		Help: "Delivered copies removed by auto-delete.",
	})
)

const (
	deletedNotice = "<b>Your file was deleted as scheduled.\n\nTap the button below to get it again.</b>"
	recoverButton = "Get File Again"
)

// Transport is the slice of the Telegram client the scheduler needs.
type Transport interface {
	DeleteMessage(ctx context.Context, h telegram.Handle) error
	EditMessage(ctx context.Context, h telegram.Handle, text string, markup *tgbotapi.InlineKeyboardMarkup) error
}

// Scheduler supervises one goroutine per scheduled deletion. Tasks share no
// mutable state; the supervisor exists so shutdown can cancel them as a
// batch and wait for the stragglers.
type Scheduler struct {
	tg     Transport
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Scheduler.
func New(tg Transport, log *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{tg: tg, log: log, ctx: ctx, cancel: cancel}
}

// Schedule arranges for handles to be deleted after delay, then edits notice
// into a recovery message pointing at recoveryURL. Fire-and-forget: it
// returns immediately and never reports errors to the caller. A delay of
// zero or less is a no-op.
func (s *Scheduler) Schedule(handles []telegram.Handle, notice telegram.Handle, delay time.Duration, recoveryURL string) {
	if delay <= 0 {
		return
	}
	scheduledTasks.Inc()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(handles, notice, delay, recoveryURL)
	}()
}

func (s *Scheduler) run(handles []telegram.Handle, notice telegram.Handle, delay time.Duration, recoveryURL string) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		// Shutdown cancelled the batch while this task was waiting.
		return
	case <-timer.C:
	}

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h telegram.Handle) {
			defer wg.Done()
			if err := s.tg.DeleteMessage(s.ctx, h); err != nil {
				// Already gone or no rights; siblings continue regardless.
				s.log.Warn("auto-delete failed", "chat", h.ChatID, "message", h.MessageID, "err", err)
				return
			}
			deletedMessages.Inc()
		}(h)
	}
	wg.Wait()

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(recoverButton, recoveryURL)),
	)
	if err := s.tg.EditMessage(s.ctx, notice, deletedNotice, &markup); err != nil {
		s.log.Warn("recovery notice edit failed", "chat", notice.ChatID, "err", err)
	}
}

// Shutdown cancels waiting tasks and blocks until every spawned task has
// returned or ctx expires.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
