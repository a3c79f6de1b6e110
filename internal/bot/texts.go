package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Mraprguild8133/Filestore/internal/telegram"
)

// User-facing texts. HTML parse mode throughout; raw error detail never
// reaches these strings.
const (
	startText = "<b>Hello %s!</b>\n\n" +
		"I store files and hand them out through share links. " +
		"Open a link you received to get its files."

	helpText = "<b>Commands</b>\n" +
		"/start - start the bot or open a share link\n" +
		"/help - this message\n\n" +
		"<b>Admin</b>\n" +
		"Send me any file to store it and get a share link.\n" +
		"/batch &lt;link&gt; &lt;link&gt;... - group file links into one batch link\n" +
		"/settimer &lt;seconds&gt; - auto-delete delivered files\n" +
		"/addchannel, /delchannel, /channelmode - manage force-subscribe channels\n" +
		"/ban, /unban - manage the ban list\n" +
		"/stats - usage counters\n" +
		"/broadcast - reply to a message to send it to everyone"

	aboutText = "<b>File Store Bot</b>\n" +
		"Files live in a private channel; links carry an opaque token that " +
		"maps back to them."

	bannedText = "<b>You are banned from using this bot.</b>\n\n" +
		"Contact support if you think this is a mistake."

	forceSubText = "<b>Join the channel(s) below to receive your files.</b>\n\n" +
		"Then hit Try Again."

	waitText = "<b>Please wait...</b>"

	invalidLinkText    = "This link is invalid or corrupted."
	expiredText        = "This file is no longer available. It may have expired or been removed."
	deliveryFailedText = "Your files could not be delivered. Please try again later."
	genericErrorText   = "Something went wrong. Please try again."
	configErrorText    = "The bot is misconfigured. Please contact the administrator."

	deleteNoticeText = "<b>These files will be deleted in %s.</b>\n" +
		"Save or forward them somewhere safe before then."

	uploadDeniedText = "Only admins can upload files here."
	uploadFailedText = "Could not store that file. Please try again."
	tooLargeText     = "File too large. The limit is %d MB."
	uploadedText     = "<b>File stored.</b>\n\n" +
		"Name: <code>%s</code>\nSize: <code>%d bytes</code>\nLink: %s"

	batchUsageText   = "Usage: /batch &lt;file link&gt; &lt;file link&gt;... (two or more, in delivery order)"
	batchBadLinkText = "Not a file link issued by this bot: <code>%s</code>"
	batchCreatedText = "<b>Batch of %d files created.</b>\n\nLink: %s"

	notAdminText = "This command is for admins only."
)

func handleOf(msg *tgbotapi.Message) telegram.Handle {
	return telegram.Handle{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
}
