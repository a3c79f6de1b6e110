package delivery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Mraprguild8133/Filestore/internal/resolver"
	"github.com/Mraprguild8133/Filestore/internal/telegram"
)

type copyCall struct {
	src     telegram.Handle
	caption string
	protect bool
}

// fakeTransport scripts per-message failures. fail maps a source message id
// to the number of times its copy should fail before succeeding.
type fakeTransport struct {
	calls   []copyCall
	fail    map[int]int
	failErr error
	next    int
}

func (f *fakeTransport) CopyMessage(_ context.Context, src telegram.Handle, dest int64, opts telegram.CopyOptions) (telegram.Handle, error) {
	f.calls = append(f.calls, copyCall{src: src, caption: opts.Caption, protect: opts.ProtectContent})
	if n := f.fail[src.MessageID]; n > 0 {
		f.fail[src.MessageID] = n - 1
		return telegram.Handle{}, f.failErr
	}
	f.next++
	return telegram.Handle{ChatID: dest, MessageID: 1000 + f.next}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func refs(ids ...int) []resolver.MessageRef {
	out := make([]resolver.MessageRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, resolver.MessageRef{ChatID: -100, MessageID: id})
	}
	return out
}

func TestDeliverPreservesOrder(t *testing.T) {
	tg := &fakeTransport{}
	e := New(tg, Options{}, discard())

	handles, err := e.Deliver(context.Background(), refs(3, 1, 2), 555)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(handles) != 3 {
		t.Fatalf("delivered %d handles, want 3", len(handles))
	}
	var srcOrder []int
	for _, c := range tg.calls {
		srcOrder = append(srcOrder, c.src.MessageID)
	}
	if diff := cmp.Diff([]int{3, 1, 2}, srcOrder); diff != "" {
		t.Fatalf("copy order mismatch (-want +got):\n%s", diff)
	}
}

func TestDeliverSkipsFailedItem(t *testing.T) {
	tg := &fakeTransport{
		fail:    map[int]int{2: 5},
		failErr: errors.New("message to copy not found"),
	}
	e := New(tg, Options{}, discard())

	handles, err := e.Deliver(context.Background(), refs(1, 2, 3), 555)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("delivered %d handles, want 2", len(handles))
	}
}

func TestDeliverEmptyIsFailure(t *testing.T) {
	tg := &fakeTransport{
		fail:    map[int]int{7: 5},
		failErr: errors.New("boom"),
	}
	e := New(tg, Options{}, discard())

	if _, err := e.Deliver(context.Background(), refs(7), 555); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("got %v, want ErrDeliveryFailed", err)
	}
}

func TestDeliverRetriesOnceOnRateLimit(t *testing.T) {
	tg := &fakeTransport{
		fail:    map[int]int{1: 1},
		failErr: &telegram.RateLimitError{RetryAfter: 10 * time.Millisecond},
	}
	e := New(tg, Options{}, discard())

	start := time.Now()
	handles, err := e.Deliver(context.Background(), refs(1), 555)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(handles) != 1 {
		t.Fatalf("delivered %d handles, want 1", len(handles))
	}
	if len(tg.calls) != 2 {
		t.Fatalf("made %d calls, want original + one retry", len(tg.calls))
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Fatalf("did not honor signaled wait, elapsed %v", elapsed)
	}
}

func TestDeliverRateLimitRetryIsSingle(t *testing.T) {
	tg := &fakeTransport{
		fail:    map[int]int{1: 5},
		failErr: &telegram.RateLimitError{RetryAfter: time.Millisecond},
	}
	e := New(tg, Options{}, discard())

	if _, err := e.Deliver(context.Background(), refs(1), 555); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("got %v, want ErrDeliveryFailed", err)
	}
	if len(tg.calls) != 2 {
		t.Fatalf("made %d calls, want exactly 2", len(tg.calls))
	}
}

func TestDeliverCaptionTemplate(t *testing.T) {
	tg := &fakeTransport{}
	e := New(tg, Options{ProtectContent: true, CaptionTemplate: "<b>{filename}</b>"}, discard())

	in := []resolver.MessageRef{
		{ChatID: -100, MessageID: 1, Name: "report.pdf"},
		{ChatID: -100, MessageID: 2}, // legacy ref, no stored name
	}
	if _, err := e.Deliver(context.Background(), in, 555); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got := tg.calls[0].caption; got != "<b>report.pdf</b>" {
		t.Fatalf("caption = %q", got)
	}
	if got := tg.calls[1].caption; got != "" {
		t.Fatalf("nameless item caption = %q, want original kept", got)
	}
	if !tg.calls[0].protect || !tg.calls[1].protect {
		t.Fatalf("protect flag not applied: %+v", tg.calls)
	}
}

func TestDeliverConstantCaptionAppliesToNamelessRefs(t *testing.T) {
	tg := &fakeTransport{}
	e := New(tg, Options{CaptionTemplate: "via @filestorebot"}, discard())

	in := []resolver.MessageRef{
		{ChatID: -100, MessageID: 1, Name: "report.pdf"},
		{ChatID: -100, MessageID: 2}, // legacy ref, no stored name
	}
	if _, err := e.Deliver(context.Background(), in, 555); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	for i, c := range tg.calls {
		if c.caption != "via @filestorebot" {
			t.Fatalf("call %d caption = %q, want the constant template", i, c.caption)
		}
	}
}

func TestDeliverPreviousCaptionTemplateKeepsOriginal(t *testing.T) {
	tg := &fakeTransport{}
	e := New(tg, Options{CaptionTemplate: "{previouscaption}\nvia bot"}, discard())

	in := []resolver.MessageRef{{ChatID: -100, MessageID: 1, Name: "report.pdf"}}
	if _, err := e.Deliver(context.Background(), in, 555); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got := tg.calls[0].caption; got != "" {
		t.Fatalf("caption = %q, want original caption kept", got)
	}
}
