package bot

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/Mraprguild8133/Filestore/internal/model"
	"github.com/Mraprguild8133/Filestore/internal/token"
)

// mediaInfo is what the upload flow extracts from an incoming message.
type mediaInfo struct {
	name        string
	size        int64
	contentType string
	hash        string
}

func hasMedia(msg *tgbotapi.Message) bool {
	return msg.Document != nil || msg.Video != nil || msg.Audio != nil ||
		msg.VideoNote != nil || msg.Voice != nil || msg.Animation != nil ||
		len(msg.Photo) > 0
}

func extractMedia(msg *tgbotapi.Message) mediaInfo {
	switch {
	case msg.Document != nil:
		return mediaInfo{msg.Document.FileName, int64(msg.Document.FileSize), msg.Document.MimeType, msg.Document.FileUniqueID}
	case msg.Video != nil:
		return mediaInfo{msg.Video.FileName, int64(msg.Video.FileSize), msg.Video.MimeType, msg.Video.FileUniqueID}
	case msg.Audio != nil:
		return mediaInfo{msg.Audio.FileName, int64(msg.Audio.FileSize), msg.Audio.MimeType, msg.Audio.FileUniqueID}
	case msg.Animation != nil:
		return mediaInfo{msg.Animation.FileName, int64(msg.Animation.FileSize), msg.Animation.MimeType, msg.Animation.FileUniqueID}
	case msg.VideoNote != nil:
		return mediaInfo{"video_note", int64(msg.VideoNote.FileSize), "video/mp4", msg.VideoNote.FileUniqueID}
	case msg.Voice != nil:
		return mediaInfo{"voice", int64(msg.Voice.FileSize), msg.Voice.MimeType, msg.Voice.FileUniqueID}
	case len(msg.Photo) > 0:
		// The last PhotoSize is the largest rendition.
		p := msg.Photo[len(msg.Photo)-1]
		return mediaInfo{"photo", int64(p.FileSize), "image/jpeg", p.FileUniqueID}
	default:
		return mediaInfo{}
	}
}

// handleUpload forwards an admin's media into the storage channel, persists
// the record and replies with the share link.
func (b *Bot) handleUpload(ctx context.Context, msg *tgbotapi.Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		b.reply(ctx, msg.Chat.ID, uploadDeniedText)
		return
	}
	media := extractMedia(msg)
	if media.size > b.cfg.MaxFileSize {
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf(tooLargeText, b.cfg.MaxFileSize>>20))
		return
	}

	stored, err := b.tg.ForwardMessage(ctx, msg.Chat.ID, b.cfg.ChannelID, msg.MessageID)
	if err != nil {
		b.log.Error("forward to storage channel", "err", err)
		b.reply(ctx, msg.Chat.ID, uploadFailedText)
		return
	}

	rec := &model.FileRecord{
		ID:          uuid.NewString(),
		ChannelID:   b.cfg.ChannelID,
		MessageID:   stored.MessageID,
		Name:        media.name,
		Size:        media.size,
		ContentType: media.contentType,
		Hash:        media.hash,
		UploadedAt:  time.Now().UTC(),
	}
	if err := b.store.SaveFile(ctx, rec); err != nil {
		b.log.Error("save file record", "err", err)
		b.reply(ctx, msg.Chat.ID, uploadFailedText)
		return
	}

	tok := token.Encode(token.FilePayload{ID: rec.ID})
	link := b.shortener.Shorten(ctx, b.deepLink(tok))
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Share Link", link)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Copy Link", "copy_"+tok)),
	)
	b.replyMarkup(ctx, msg.Chat.ID,
		fmt.Sprintf(uploadedText, escapeHTML(rec.Name), rec.Size, link), markup)
}

// handleBatch groups previously issued file links into one batch link.
// Arguments are full deep links or bare tokens, in delivery order.
func (b *Bot) handleBatch(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		b.reply(ctx, msg.Chat.ID, batchUsageText)
		return
	}
	fileIDs := make([]string, 0, len(args))
	for _, arg := range args {
		payload, err := token.Decode(extractToken(arg))
		if err != nil {
			b.reply(ctx, msg.Chat.ID, fmt.Sprintf(batchBadLinkText, escapeHTML(arg)))
			return
		}
		fp, ok := payload.(token.FilePayload)
		if !ok {
			b.reply(ctx, msg.Chat.ID, fmt.Sprintf(batchBadLinkText, escapeHTML(arg)))
			return
		}
		fileIDs = append(fileIDs, fp.ID)
	}

	batch := &model.BatchRecord{ID: uuid.NewString(), FileIDs: fileIDs, CreatedAt: time.Now().UTC()}
	if err := b.store.SaveBatch(ctx, batch); err != nil {
		b.log.Error("save batch", "err", err)
		b.reply(ctx, msg.Chat.ID, genericErrorText)
		return
	}

	tok := token.Encode(token.BatchPayload{ID: batch.ID})
	link := b.shortener.Shorten(ctx, b.deepLink(tok))
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Share Batch", link)),
	)
	b.replyMarkup(ctx, msg.Chat.ID, fmt.Sprintf(batchCreatedText, len(fileIDs), link), markup)
}

// extractToken accepts either a bare token or a full t.me deep link and
// returns the start parameter.
func extractToken(arg string) string {
	if !strings.Contains(arg, "://") {
		return arg
	}
	u, err := url.Parse(arg)
	if err != nil {
		return arg
	}
	if start := u.Query().Get("start"); start != "" {
		return start
	}
	return arg
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
