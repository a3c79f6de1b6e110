package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Mraprguild8133/Filestore/internal/model"
	"github.com/Mraprguild8133/Filestore/internal/queue"
)

func (b *Bot) handleBan(ctx context.Context, msg *tgbotapi.Message) {
	id, ok := parseID(msg.CommandArguments())
	if !ok {
		b.reply(ctx, msg.Chat.ID, "Usage: /ban &lt;user id&gt;")
		return
	}
	if err := b.store.Ban(ctx, id); err != nil {
		b.log.Error("ban", "user", id, "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("User <code>%d</code> banned.", id))
}

func (b *Bot) handleUnban(ctx context.Context, msg *tgbotapi.Message) {
	id, ok := parseID(msg.CommandArguments())
	if !ok {
		b.reply(ctx, msg.Chat.ID, "Usage: /unban &lt;user id&gt;")
		return
	}
	if err := b.store.Unban(ctx, id); err != nil {
		b.log.Error("unban", "user", id, "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("User <code>%d</code> unbanned.", id))
}

func (b *Bot) handleSetTimer(ctx context.Context, msg *tgbotapi.Message) {
	secs, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil || secs < 0 {
		b.reply(ctx, msg.Chat.ID, "Usage: /settimer &lt;seconds&gt; (0 disables auto-delete)")
		return
	}
	if err := b.store.SetDeleteTimer(ctx, secs); err != nil {
		b.log.Error("set delete timer", "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}
	if secs == 0 {
		b.reply(ctx, msg.Chat.ID, "Auto-delete disabled.")
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Delivered files now auto-delete after %d seconds.", secs))
}

func (b *Bot) handleAddChannel(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 1 {
		b.reply(ctx, msg.Chat.ID, "Usage: /addchannel &lt;chat id&gt; [open|request]")
		return
	}
	id, ok := parseID(args[0])
	if !ok {
		b.reply(ctx, msg.Chat.ID, "Usage: /addchannel &lt;chat id&gt; [open|request]")
		return
	}
	mode := model.ModeOpen
	if len(args) > 1 && model.SubscribeMode(args[1]) == model.ModeRequest {
		mode = model.ModeRequest
	}
	if err := b.store.AddChannel(ctx, id, mode); err != nil {
		b.log.Error("add channel", "chat", id, "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Channel <code>%d</code> added in %s mode.", id, mode))
}

// handleChannelMode flips an existing channel between open and join-request
// admission. Same upsert as /addchannel, kept as its own command so operators
// can change the mode without re-reading the add syntax.
func (b *Bot) handleChannelMode(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	usage := "Usage: /channelmode &lt;chat id&gt; &lt;open|request&gt;"
	if len(args) != 2 {
		b.reply(ctx, msg.Chat.ID, usage)
		return
	}
	id, ok := parseID(args[0])
	if !ok {
		b.reply(ctx, msg.Chat.ID, usage)
		return
	}
	mode := model.SubscribeMode(args[1])
	if mode != model.ModeOpen && mode != model.ModeRequest {
		b.reply(ctx, msg.Chat.ID, usage)
		return
	}
	if err := b.store.AddChannel(ctx, id, mode); err != nil {
		b.log.Error("set channel mode", "chat", id, "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Channel <code>%d</code> now in %s mode.", id, mode))
}

func (b *Bot) handleDelChannel(ctx context.Context, msg *tgbotapi.Message) {
	id, ok := parseID(msg.CommandArguments())
	if !ok {
		b.reply(ctx, msg.Chat.ID, "Usage: /delchannel &lt;chat id&gt;")
		return
	}
	if err := b.store.RemoveChannel(ctx, id); err != nil {
		b.log.Error("remove channel", "chat", id, "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Channel <code>%d</code> removed.", id))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	total, active, err := b.store.CountUsers(ctx)
	if err != nil {
		b.log.Error("count users", "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}
	files, err := b.store.CountFiles(ctx)
	if err != nil {
		b.log.Error("count files", "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf(
		"<b>Stats</b>\nUsers: %d (%d reachable)\nStored files: %d", total, active, files))
}

// handleBroadcast enqueues a fan-out of the replied-to message; the worker
// binary does the sending so a big user base never stalls the update loop.
func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		b.reply(ctx, msg.Chat.ID, "Reply to the message you want to broadcast with /broadcast.")
		return
	}
	payload := queue.BroadcastPayload{
		FromChatID:  msg.Chat.ID,
		MessageID:   msg.ReplyToMessage.MessageID,
		RequestedBy: msg.From.ID,
	}
	if err := queue.EnqueueBroadcast(ctx, b.queue, payload); err != nil {
		b.log.Error("enqueue broadcast", "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}
	b.reply(ctx, msg.Chat.ID, "Broadcast queued.")
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
