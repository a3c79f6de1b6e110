package autodelete

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Mraprguild8133/Filestore/internal/telegram"
)

type fakeTransport struct {
	mu       sync.Mutex
	deleted  []telegram.Handle
	failIDs  map[int]bool
	edits    []string
	editURLs []string
	editErr  error
}

func (f *fakeTransport) DeleteMessage(_ context.Context, h telegram.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[h.MessageID] {
		return errors.New("message can't be deleted")
	}
	f.deleted = append(f.deleted, h)
	return nil
}

func (f *fakeTransport) EditMessage(_ context.Context, _ telegram.Handle, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, text)
	if markup != nil && len(markup.InlineKeyboard) > 0 && len(markup.InlineKeyboard[0]) > 0 {
		if url := markup.InlineKeyboard[0][0].URL; url != nil {
			f.editURLs = append(f.editURLs, *url)
		}
	}
	return nil
}

func (f *fakeTransport) snapshot() (deleted int, edits []string, urls []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted), append([]string(nil), f.edits...), append([]string(nil), f.editURLs...)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func handles(ids ...int) []telegram.Handle {
	out := make([]telegram.Handle, 0, len(ids))
	for _, id := range ids {
		out = append(out, telegram.Handle{ChatID: 555, MessageID: id})
	}
	return out
}

func TestScheduleZeroDelayIsNoop(t *testing.T) {
	tg := &fakeTransport{}
	s := New(tg, discard())

	s.Schedule(handles(1, 2), telegram.Handle{ChatID: 555, MessageID: 9}, 0, "https://t.me/bot?start=x")

	time.Sleep(50 * time.Millisecond)
	deleted, edits, _ := tg.snapshot()
	if deleted != 0 || len(edits) != 0 {
		t.Fatalf("zero delay acted: deleted=%d edits=%d", deleted, len(edits))
	}
}

func TestScheduleDeletesAndEditsNotice(t *testing.T) {
	tg := &fakeTransport{failIDs: map[int]bool{2: true}}
	s := New(tg, discard())

	url := "https://t.me/bot?start=tok"
	s.Schedule(handles(1, 2), telegram.Handle{ChatID: 555, MessageID: 9}, 20*time.Millisecond, url)

	waitFor(t, func() bool {
		_, edits, _ := tg.snapshot()
		return len(edits) == 1
	})
	deleted, edits, urls := tg.snapshot()
	// One of the two deletions failed; the surviving one and the notice edit
	// must still happen.
	if deleted != 1 {
		t.Fatalf("deleted %d messages, want 1", deleted)
	}
	if len(edits) != 1 || !strings.Contains(edits[0], "get it again") {
		t.Fatalf("notice edits = %q", edits)
	}
	if len(urls) != 1 || urls[0] != url {
		t.Fatalf("recovery urls = %q, want %q", urls, url)
	}
}

func TestScheduleEditFailureStillCompletes(t *testing.T) {
	tg := &fakeTransport{editErr: errors.New("message not modified")}
	s := New(tg, discard())

	s.Schedule(handles(1), telegram.Handle{ChatID: 555, MessageID: 9}, 10*time.Millisecond, "u")

	waitFor(t, func() bool {
		deleted, _, _ := tg.snapshot()
		return deleted == 1
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown after edit failure: %v", err)
	}
}

func TestShutdownCancelsWaitingTasks(t *testing.T) {
	tg := &fakeTransport{}
	s := New(tg, discard())

	s.Schedule(handles(1), telegram.Handle{ChatID: 555, MessageID: 9}, time.Hour, "u")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	deleted, edits, _ := tg.snapshot()
	if deleted != 0 || len(edits) != 0 {
		t.Fatalf("cancelled task still acted: deleted=%d edits=%d", deleted, len(edits))
	}
}
