package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Mraprguild8133/Filestore/internal/model"
	"github.com/Mraprguild8133/Filestore/internal/repository"
	"github.com/Mraprguild8133/Filestore/internal/token"
)

const channelID = int64(-1001234567890)

type fakeStore struct {
	files   map[string]*model.FileRecord
	batches map[string]*model.BatchRecord
}

func (s *fakeStore) GetFile(_ context.Context, id string) (*model.FileRecord, error) {
	rec, ok := s.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec, nil
}

func (s *fakeStore) GetBatch(_ context.Context, id string) (*model.BatchRecord, error) {
	rec, ok := s.batches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(s *fakeStore) *Resolver {
	return New(s, channelID, discard())
}

func file(id string, msgID int) *model.FileRecord {
	return &model.FileRecord{ID: id, ChannelID: channelID, MessageID: msgID}
}

func msgIDs(refs []MessageRef) []int {
	out := make([]int, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.MessageID)
	}
	return out
}

func TestResolveFile(t *testing.T) {
	store := &fakeStore{files: map[string]*model.FileRecord{"a": file("a", 77)}}
	r := newTestResolver(store)

	refs, err := r.Resolve(context.Background(), token.FilePayload{ID: "a"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []MessageRef{{ChatID: channelID, MessageID: 77}}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Fatalf("refs mismatch (-want +got):\n%s", diff)
	}

	if _, err := r.Resolve(context.Background(), token.FilePayload{ID: "gone"}); !errors.Is(err, ErrResourceExpired) {
		t.Fatalf("missing file: got %v, want ErrResourceExpired", err)
	}
}

func TestResolveBatchSkipsMissingMember(t *testing.T) {
	store := &fakeStore{
		files: map[string]*model.FileRecord{
			"f1": file("f1", 10),
			"f3": file("f3", 30),
		},
		batches: map[string]*model.BatchRecord{
			"b": {ID: "b", FileIDs: []string{"f1", "f2", "f3"}},
		},
	}
	r := newTestResolver(store)

	refs, err := r.Resolve(context.Background(), token.BatchPayload{ID: "b"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]int{10, 30}, msgIDs(refs)); diff != "" {
		t.Fatalf("batch order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveBatchExpired(t *testing.T) {
	store := &fakeStore{
		batches: map[string]*model.BatchRecord{
			"empty": {ID: "empty", FileIDs: []string{"f1", "f2"}},
		},
	}
	r := newTestResolver(store)

	if _, err := r.Resolve(context.Background(), token.BatchPayload{ID: "nope"}); !errors.Is(err, ErrResourceExpired) {
		t.Fatalf("missing batch: got %v, want ErrResourceExpired", err)
	}
	// Every member gone: the token is valid but nothing can be delivered.
	if _, err := r.Resolve(context.Background(), token.BatchPayload{ID: "empty"}); !errors.Is(err, ErrResourceExpired) {
		t.Fatalf("hollow batch: got %v, want ErrResourceExpired", err)
	}
}

func TestResolveLegacyRange(t *testing.T) {
	r := newTestResolver(&fakeStore{})
	abs := -channelID

	refs, err := r.Resolve(context.Background(), token.LegacyPayload{Parts: []int64{100 * abs, 103 * abs}})
	if err != nil {
		t.Fatalf("ascending: %v", err)
	}
	if diff := cmp.Diff([]int{100, 101, 102, 103}, msgIDs(refs)); diff != "" {
		t.Fatalf("ascending mismatch (-want +got):\n%s", diff)
	}

	refs, err = r.Resolve(context.Background(), token.LegacyPayload{Parts: []int64{103 * abs, 100 * abs}})
	if err != nil {
		t.Fatalf("descending: %v", err)
	}
	if diff := cmp.Diff([]int{103, 102, 101, 100}, msgIDs(refs)); diff != "" {
		t.Fatalf("descending mismatch (-want +got):\n%s", diff)
	}

	refs, err = r.Resolve(context.Background(), token.LegacyPayload{Parts: []int64{42 * abs}})
	if err != nil {
		t.Fatalf("singleton: %v", err)
	}
	if diff := cmp.Diff([]int{42}, msgIDs(refs)); diff != "" {
		t.Fatalf("singleton mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveLegacyMalformed(t *testing.T) {
	r := newTestResolver(&fakeStore{})
	for _, parts := range [][]int64{
		{0},
		{5}, // smaller than the divisor, quotient is zero
		{-42 * -channelID},
	} {
		if _, err := r.Resolve(context.Background(), token.LegacyPayload{Parts: parts}); !errors.Is(err, token.ErrMalformed) {
			t.Fatalf("parts %v: got %v, want ErrMalformed", parts, err)
		}
	}
}
