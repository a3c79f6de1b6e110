package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	answer := func(text string, alert bool) {
		if err := b.tg.AnswerCallback(ctx, cb.ID, text, alert); err != nil {
			b.log.Warn("answer callback", "err", err)
		}
	}
	switch {
	case strings.HasPrefix(cb.Data, "copy_"):
		tok := strings.TrimPrefix(cb.Data, "copy_")
		link := b.shortener.Shorten(ctx, b.deepLink(tok))
		answer(link, true)
	case cb.Data == "help":
		answer("Send /help for the command list.", false)
		if cb.Message != nil {
			b.reply(ctx, cb.Message.Chat.ID, helpText)
		}
	case cb.Data == "about":
		answer("", false)
		if cb.Message != nil {
			b.reply(ctx, cb.Message.Chat.ID, aboutText)
		}
	case cb.Data == "close":
		answer("", false)
		if cb.Message != nil {
			h := handleOf(cb.Message)
			if err := b.tg.DeleteMessage(ctx, h); err != nil {
				b.log.Warn("close message", "err", err)
			}
		}
	default:
		answer("", false)
	}
}
