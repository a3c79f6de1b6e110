package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Mraprguild8133/Filestore/internal/delivery"
	"github.com/Mraprguild8133/Filestore/internal/gate"
	"github.com/Mraprguild8133/Filestore/internal/resolver"
	"github.com/Mraprguild8133/Filestore/internal/telegram"
	"github.com/Mraprguild8133/Filestore/internal/token"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	if err := b.store.AddUser(ctx, userID); err != nil {
		b.log.Error("add user", "user", userID, "err", err)
	}

	arg := msg.CommandArguments()
	decision, err := b.gate.Check(ctx, userID)
	if err != nil {
		if errors.Is(err, gate.ErrConfiguration) {
			b.log.Error("gate misconfigured", "err", err)
			b.reply(ctx, msg.Chat.ID, configErrorText)
			return
		}
		b.log.Error("gate check", "user", userID, "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}
	if !decision.Permitted {
		switch decision.Reason {
		case gate.ReasonBanned:
			b.sendBanned(ctx, msg.Chat.ID)
		case gate.ReasonNotSubscribed:
			b.sendForceSub(ctx, msg.Chat.ID, decision.Missing, arg)
		}
		return
	}

	if arg == "" {
		b.sendWelcome(ctx, msg)
		return
	}
	b.handleFileRequest(ctx, msg, arg)
}

// handleFileRequest runs the core pipeline: decode, resolve, deliver,
// schedule auto-delete. Terminal errors become one short reply each; raw
// error detail stays in the logs.
func (b *Bot) handleFileRequest(ctx context.Context, msg *tgbotapi.Message, arg string) {
	payload, err := token.Decode(arg)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, invalidLinkText)
		return
	}

	refs, err := b.resolver.Resolve(ctx, payload)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrMalformed):
			b.reply(ctx, msg.Chat.ID, invalidLinkText)
		case errors.Is(err, resolver.ErrResourceExpired):
			b.reply(ctx, msg.Chat.ID, expiredText)
		default:
			b.log.Error("resolve", "err", err)
			b.reply(ctx, msg.Chat.ID, genericErrorText)
		}
		return
	}

	wait, waitErr := b.tg.SendMessage(ctx, msg.Chat.ID, waitText, nil)
	handles, err := b.delivery.Deliver(ctx, refs, msg.Chat.ID)
	if waitErr == nil {
		if err := b.tg.DeleteMessage(ctx, wait); err != nil {
			b.log.Warn("delete wait notice", "err", err)
		}
	}
	if err != nil {
		if errors.Is(err, delivery.ErrDeliveryFailed) {
			b.reply(ctx, msg.Chat.ID, deliveryFailedText)
		} else {
			b.log.Error("deliver", "err", err)
			b.reply(ctx, msg.Chat.ID, genericErrorText)
		}
		return
	}

	b.scheduleAutoDelete(ctx, msg.Chat.ID, handles, arg)
}

// scheduleAutoDelete reads the timer at request time (the feature is opt-in
// per configuration), posts the countdown notice and hands everything to the
// scheduler.
func (b *Bot) scheduleAutoDelete(ctx context.Context, chatID int64, handles []telegram.Handle, arg string) {
	seconds, err := b.store.DeleteTimer(ctx)
	if err != nil {
		b.log.Error("read delete timer", "err", err)
		return
	}
	if seconds <= 0 {
		return
	}
	delay := time.Duration(seconds) * time.Second
	notice, err := b.tg.SendMessage(ctx, chatID, fmt.Sprintf(deleteNoticeText, formatDuration(delay)), nil)
	if err != nil {
		b.log.Error("send delete notice", "err", err)
		return
	}
	recovery := b.shortener.Shorten(ctx, b.deepLink(arg))
	b.scheduler.Schedule(handles, notice, delay, recovery)
}

func (b *Bot) sendWelcome(ctx context.Context, msg *tgbotapi.Message) {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Help", "help"),
			tgbotapi.NewInlineKeyboardButtonData("About", "about"),
		),
	)
	b.replyMarkup(ctx, msg.Chat.ID, fmt.Sprintf(startText, msg.From.FirstName), markup)
}

func (b *Bot) sendBanned(ctx context.Context, chatID int64) {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Contact Support", b.cfg.BanSupportURL),
		),
	)
	b.replyMarkup(ctx, chatID, bannedText, markup)
}

// sendForceSub renders one join button per unmet channel and, when the user
// was after a file, a try-again button that replays the original token.
func (b *Bot) sendForceSub(ctx context.Context, chatID int64, missing []gate.ChannelInvite, arg string) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(missing)+1)
	for _, inv := range missing {
		title := inv.Title
		if title == "" {
			title = "Join Channel"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(title, inv.URL),
		))
	}
	if arg != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Try Again", b.deepLink(arg)),
		))
	}
	b.replyMarkup(ctx, chatID, forceSubText, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// formatDuration renders a delay the way users read it: "2h 30m 15s" with
// zero components dropped.
func formatDuration(d time.Duration) string {
	total := int64(d.Round(time.Second) / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	out := ""
	if h > 0 {
		out += fmt.Sprintf("%dh ", h)
	}
	if m > 0 {
		out += fmt.Sprintf("%dm ", m)
	}
	if s > 0 || out == "" {
		out += fmt.Sprintf("%ds", s)
	}
	return strings.TrimSpace(out)
}
