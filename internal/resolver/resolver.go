// Package resolver turns a decoded deep-link payload into the ordered
// channel messages to deliver.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Mraprguild8133/Filestore/internal/model"
	"github.com/Mraprguild8133/Filestore/internal/repository"
	"github.com/Mraprguild8133/Filestore/internal/token"
)

// ErrResourceExpired means the token was well-formed but its backing record
// is gone. User-facing; not logged as an error.
var ErrResourceExpired = errors.New("resource expired")

// MessageRef points at one message in the storage channel. Name carries the
// stored display name when the record is known; legacy refs leave it empty.
type MessageRef struct {
	ChatID    int64
	MessageID int
	Name      string
}

// Store is the read side the resolver needs. Missing records are reported
// with an error satisfying errors.Is(err, repository.ErrNotFound).
type Store interface {
	GetFile(ctx context.Context, id string) (*model.FileRecord, error)
	GetBatch(ctx context.Context, id string) (*model.BatchRecord, error)
}

// Resolver resolves payloads against the store and the storage channel.
type Resolver struct {
	store Store
	// channelID is the storage channel whose magnitude divides legacy link
	// integers. Previously issued legacy links encode this exact value, so
	// migrating the channel silently invalidates them; that trade-off is
	// deliberate and must not be "fixed" by changing the scheme.
	channelID int64
	log       *slog.Logger
}

// New constructs a Resolver.
func New(store Store, storageChannelID int64, log *slog.Logger) *Resolver {
	return &Resolver{store: store, channelID: storageChannelID, log: log}
}

// Resolve maps a payload to its ordered message references.
func (r *Resolver) Resolve(ctx context.Context, p token.Payload) ([]MessageRef, error) {
	switch p := p.(type) {
	case token.FilePayload:
		return r.resolveFile(ctx, p.ID)
	case token.BatchPayload:
		return r.resolveBatch(ctx, p.ID)
	case token.LegacyPayload:
		return r.resolveLegacy(p.Parts)
	default:
		return nil, fmt.Errorf("%w: unsupported payload %T", token.ErrMalformed, p)
	}
}

func (r *Resolver) resolveFile(ctx context.Context, id string) ([]MessageRef, error) {
	rec, err := r.store.GetFile(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("file %s: %w", id, ErrResourceExpired)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return []MessageRef{{ChatID: rec.ChannelID, MessageID: rec.MessageID, Name: rec.Name}}, nil
}

func (r *Resolver) resolveBatch(ctx context.Context, id string) ([]MessageRef, error) {
	batch, err := r.store.GetBatch(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("batch %s: %w", id, ErrResourceExpired)
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	refs := make([]MessageRef, 0, len(batch.FileIDs))
	for _, fileID := range batch.FileIDs {
		rec, err := r.store.GetFile(ctx, fileID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Partial delivery beats total failure; skip the member.
				r.log.Warn("batch member missing", "batch", id, "file", fileID)
				continue
			}
			return nil, fmt.Errorf("get batch member: %w", err)
		}
		refs = append(refs, MessageRef{ChatID: rec.ChannelID, MessageID: rec.MessageID, Name: rec.Name})
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("batch %s has no surviving members: %w", id, ErrResourceExpired)
	}
	return refs, nil
}

// resolveLegacy recovers message ids from the arithmetic of previously
// issued range links: each integer is a message id times the storage channel
// id magnitude. Two integers form an inclusive range whose direction is
// preserved; one integer is a singleton.
func (r *Resolver) resolveLegacy(parts []int64) ([]MessageRef, error) {
	div := r.channelID
	if div < 0 {
		div = -div
	}
	if div == 0 {
		return nil, fmt.Errorf("%w: no storage channel configured", token.ErrMalformed)
	}
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id := part / div
		if id < 1 {
			return nil, fmt.Errorf("%w: legacy value %d yields no message id", token.ErrMalformed, part)
		}
		ids = append(ids, int(id))
	}
	var seq []int
	switch len(ids) {
	case 1:
		seq = ids
	case 2:
		start, end := ids[0], ids[1]
		if start <= end {
			for i := start; i <= end; i++ {
				seq = append(seq, i)
			}
		} else {
			for i := start; i >= end; i-- {
				seq = append(seq, i)
			}
		}
	default:
		return nil, fmt.Errorf("%w: legacy payload carries %d values", token.ErrMalformed, len(ids))
	}
	refs := make([]MessageRef, 0, len(seq))
	for _, id := range seq {
		refs = append(refs, MessageRef{ChatID: r.channelID, MessageID: id})
	}
	return refs, nil
}
