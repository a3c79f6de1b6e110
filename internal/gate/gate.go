// Package gate decides whether a requester may receive content: ban list
// first, then force-subscribe membership over every configured channel.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Mraprguild8133/Filestore/internal/model"
	"github.com/Mraprguild8133/Filestore/internal/telegram"
)

// ErrConfiguration means the gate could not determine compliance, e.g. the
// bot lacks rights to mint an invite link for a required channel. Silently
// omitting the channel would let users bypass the requirement, so this is a
// hard error.
var ErrConfiguration = errors.New("force-subscribe configuration error")

// Reason explains a denial.
type Reason string

const (
	ReasonBanned        Reason = "banned"
	ReasonNotSubscribed Reason = "not_subscribed"
)

// ChannelInvite is one unmet channel together with a link the user can join
// through.
type ChannelInvite struct {
	ChatID      int64
	Title       string
	URL         string
	JoinRequest bool
}

// Decision is the gate's verdict for one request.
type Decision struct {
	Permitted bool
	Reason    Reason
	// Missing lists the unmet channels when Reason is ReasonNotSubscribed,
	// in configuration order.
	Missing []ChannelInvite
}

// Store is the persistence the gate reads. Never written.
type Store interface {
	IsBanned(ctx context.Context, userID int64) (bool, error)
	ForceSubChannels(ctx context.Context) ([]model.ForceSubChannel, error)
	HasJoinRequest(ctx context.Context, chatID, userID int64) (bool, error)
}

// Transport is the slice of the Telegram client the gate needs.
type Transport interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
	GetChat(ctx context.Context, chatID int64) (telegram.ChatInfo, error)
	CreateInviteLink(ctx context.Context, chatID int64, joinRequest bool, expiry time.Duration) (string, error)
}

// Gate evaluates access. The invite and chat caches are process-scoped and
// shared across requests; everything else is per-call.
type Gate struct {
	store      Store
	tg         Transport
	linkExpiry time.Duration
	log        *slog.Logger

	// Cached invite links are keyed by channel id and age out together with
	// the link's own expiry, so a stale link is never handed out.
	links *expirable.LRU[int64, string]
	chats *expirable.LRU[int64, telegram.ChatInfo]
}

const cacheSize = 256

// New constructs a Gate.
func New(store Store, tg Transport, linkExpiry time.Duration, log *slog.Logger) *Gate {
	return &Gate{
		store:      store,
		tg:         tg,
		linkExpiry: linkExpiry,
		log:        log,
		links:      expirable.NewLRU[int64, string](cacheSize, nil, linkExpiry),
		chats:      expirable.NewLRU[int64, telegram.ChatInfo](cacheSize, nil, 0),
	}
}

// Check runs the ban check and then the subscription check, short-circuiting
// on the first failure.
func (g *Gate) Check(ctx context.Context, userID int64) (Decision, error) {
	banned, err := g.store.IsBanned(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("ban check: %w", err)
	}
	if banned {
		return Decision{Reason: ReasonBanned}, nil
	}

	channels, err := g.store.ForceSubChannels(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("list channels: %w", err)
	}
	var missing []ChannelInvite
	for _, ch := range channels {
		ok, err := g.satisfied(ctx, ch, userID)
		if err != nil {
			return Decision{}, fmt.Errorf("%w: chat %d: %v", ErrConfiguration, ch.ChatID, err)
		}
		if ok {
			continue
		}
		invite, err := g.invite(ctx, ch)
		if err != nil {
			return Decision{}, fmt.Errorf("%w: chat %d: %v", ErrConfiguration, ch.ChatID, err)
		}
		missing = append(missing, invite)
	}
	if len(missing) > 0 {
		return Decision{Reason: ReasonNotSubscribed, Missing: missing}, nil
	}
	return Decision{Permitted: true}, nil
}

func (g *Gate) satisfied(ctx context.Context, ch model.ForceSubChannel, userID int64) (bool, error) {
	member, err := g.tg.IsMember(ctx, ch.ChatID, userID)
	if err != nil {
		return false, err
	}
	if member {
		return true, nil
	}
	if ch.Mode == model.ModeRequest {
		// A pending join request counts; the bot records them from
		// chat_join_request updates.
		return g.store.HasJoinRequest(ctx, ch.ChatID, userID)
	}
	return false, nil
}

func (g *Gate) invite(ctx context.Context, ch model.ForceSubChannel) (ChannelInvite, error) {
	info, err := g.chatInfo(ctx, ch.ChatID)
	if err != nil {
		return ChannelInvite{}, err
	}
	inv := ChannelInvite{
		ChatID:      ch.ChatID,
		Title:       info.Title,
		JoinRequest: ch.Mode == model.ModeRequest,
	}
	if ch.Mode != model.ModeRequest && info.Username != "" {
		inv.URL = "https://t.me/" + info.Username
		return inv, nil
	}
	if url, ok := g.links.Get(ch.ChatID); ok {
		inv.URL = url
		return inv, nil
	}
	url, err := g.tg.CreateInviteLink(ctx, ch.ChatID, inv.JoinRequest, g.linkExpiry)
	if err != nil {
		return ChannelInvite{}, err
	}
	g.links.Add(ch.ChatID, url)
	g.log.Debug("minted invite link", "chat", ch.ChatID, "join_request", inv.JoinRequest)
	inv.URL = url
	return inv, nil
}

func (g *Gate) chatInfo(ctx context.Context, chatID int64) (telegram.ChatInfo, error) {
	if info, ok := g.chats.Get(chatID); ok {
		return info, nil
	}
	info, err := g.tg.GetChat(ctx, chatID)
	if err != nil {
		return telegram.ChatInfo{}, err
	}
	g.chats.Add(chatID, info)
	return info, nil
}
