// Package bot wires the Telegram update loop to the retrieval pipeline:
// token codec, access gate, resolver, delivery engine and auto-delete
// scheduler.
package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"

	"github.com/Mraprguild8133/Filestore/internal/autodelete"
	"github.com/Mraprguild8133/Filestore/internal/config"
	"github.com/Mraprguild8133/Filestore/internal/delivery"
	"github.com/Mraprguild8133/Filestore/internal/gate"
	"github.com/Mraprguild8133/Filestore/internal/repository"
	"github.com/Mraprguild8133/Filestore/internal/resolver"
	"github.com/Mraprguild8133/Filestore/internal/shortener"
	"github.com/Mraprguild8133/Filestore/internal/telegram"
)

// Transport is the slice of the Telegram client the bot surface needs.
// Delivery and auto-delete hold their own slices; this one covers the
// update loop, replies and the upload forward.
type Transport interface {
	Username() string
	Updates() tgbotapi.UpdatesChannel
	StopUpdates()
	SendMessage(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (telegram.Handle, error)
	DeleteMessage(ctx context.Context, h telegram.Handle) error
	ForwardMessage(ctx context.Context, fromChat, toChat int64, messageID int) (telegram.Handle, error)
	AnswerCallback(ctx context.Context, id, text string, alert bool) error
}

// Bot owns the long-poll loop and the command surface.
type Bot struct {
	cfg       *config.Config
	tg        Transport
	store     *repository.Store
	gate      *gate.Gate
	resolver  *resolver.Resolver
	delivery  *delivery.Engine
	scheduler *autodelete.Scheduler
	shortener *shortener.Shortener
	queue     *asynq.Client
	log       *slog.Logger
}

// New constructs a Bot.
func New(
	cfg *config.Config,
	tg Transport,
	store *repository.Store,
	g *gate.Gate,
	r *resolver.Resolver,
	d *delivery.Engine,
	s *autodelete.Scheduler,
	short *shortener.Shortener,
	queueClient *asynq.Client,
	log *slog.Logger,
) *Bot {
	return &Bot{
		cfg:       cfg,
		tg:        tg,
		store:     store,
		gate:      g,
		resolver:  r,
		delivery:  d,
		scheduler: s,
		shortener: short,
		queue:     queueClient,
		log:       log,
	}
}

// Run consumes updates until the context is cancelled. Each update gets its
// own goroutine; request working sets are private, so no locking is needed.
func (b *Bot) Run(ctx context.Context) error {
	updates := b.tg.Updates()
	b.log.Info("bot started", "username", b.tg.Username())
	for {
		select {
		case <-ctx.Done():
			b.tg.StopUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panicked", "panic", r)
		}
	}()
	switch {
	case upd.ChatJoinRequest != nil:
		b.handleJoinRequest(ctx, upd.ChatJoinRequest)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Chat != nil && upd.Message.Chat.IsPrivate():
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if hasMedia(msg) {
		b.handleUpload(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "help", "commands":
		b.reply(ctx, msg.Chat.ID, helpText)
	case "batch":
		b.requireAdmin(ctx, msg, b.handleBatch)
	case "ban":
		b.requireAdmin(ctx, msg, b.handleBan)
	case "unban":
		b.requireAdmin(ctx, msg, b.handleUnban)
	case "settimer":
		b.requireAdmin(ctx, msg, b.handleSetTimer)
	case "addchannel":
		b.requireAdmin(ctx, msg, b.handleAddChannel)
	case "delchannel":
		b.requireAdmin(ctx, msg, b.handleDelChannel)
	case "channelmode":
		b.requireAdmin(ctx, msg, b.handleChannelMode)
	case "stats":
		b.requireAdmin(ctx, msg, b.handleStats)
	case "broadcast":
		b.requireAdmin(ctx, msg, b.handleBroadcast)
	}
}

func (b *Bot) requireAdmin(ctx context.Context, msg *tgbotapi.Message, h func(context.Context, *tgbotapi.Message)) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		b.reply(ctx, msg.Chat.ID, notAdminText)
		return
	}
	h(ctx, msg)
}

func (b *Bot) handleJoinRequest(ctx context.Context, req *tgbotapi.ChatJoinRequest) {
	if err := b.store.RecordJoinRequest(ctx, req.Chat.ID, req.From.ID); err != nil {
		b.log.Error("record join request", "chat", req.Chat.ID, "user", req.From.ID, "err", err)
	}
}

// reply sends a plain HTML message, logging instead of propagating failures.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.tg.SendMessage(ctx, chatID, text, nil); err != nil {
		b.log.Error("send reply", "chat", chatID, "err", err)
	}
}

func (b *Bot) replyMarkup(ctx context.Context, chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	if _, err := b.tg.SendMessage(ctx, chatID, text, &markup); err != nil {
		b.log.Error("send reply", "chat", chatID, "err", err)
	}
}

// deepLink builds the t.me start URL carrying a token.
func (b *Bot) deepLink(tok string) string {
	return "https://t.me/" + b.tg.Username() + "?start=" + tok
}
