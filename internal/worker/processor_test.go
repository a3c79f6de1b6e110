package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"

	"github.com/Mraprguild8133/Filestore/internal/queue"
	"github.com/Mraprguild8133/Filestore/internal/telegram"
)

type fakeStore struct {
	users       []int64
	deactivated []int64
}

func (s *fakeStore) ListActiveUsers(context.Context) ([]int64, error) { return s.users, nil }

func (s *fakeStore) DeactivateUser(_ context.Context, id int64) error {
	s.deactivated = append(s.deactivated, id)
	return nil
}

type fakeTransport struct {
	sent      []int64
	blocked   map[int64]bool
	rateLimit map[int64]int
}

func (t *fakeTransport) CopyMessage(_ context.Context, _ telegram.Handle, dest int64, _ telegram.CopyOptions) (telegram.Handle, error) {
	if t.blocked[dest] {
		return telegram.Handle{}, &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
	}
	if n := t.rateLimit[dest]; n > 0 {
		t.rateLimit[dest] = n - 1
		return telegram.Handle{}, &telegram.RateLimitError{RetryAfter: time.Millisecond}
	}
	t.sent = append(t.sent, dest)
	return telegram.Handle{ChatID: dest, MessageID: 1}, nil
}

func TestBroadcastFanOut(t *testing.T) {
	store := &fakeStore{users: []int64{1, 2, 3, 4}}
	tg := &fakeTransport{
		blocked:   map[int64]bool{2: true},
		rateLimit: map[int64]int{3: 1},
	}
	p := NewProcessor(store, tg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.sendDelay = 0

	payload, err := json.Marshal(queue.BroadcastPayload{FromChatID: 42, MessageID: 7, RequestedBy: 99})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	task := asynq.NewTask(queue.BroadcastTask, payload)
	if err := p.handleBroadcast(context.Background(), task); err != nil {
		t.Fatalf("handleBroadcast: %v", err)
	}

	if len(tg.sent) != 3 {
		t.Fatalf("sent to %v, want users 1, 3, 4", tg.sent)
	}
	if len(store.deactivated) != 1 || store.deactivated[0] != 2 {
		t.Fatalf("deactivated %v, want just the blocked user", store.deactivated)
	}
}
