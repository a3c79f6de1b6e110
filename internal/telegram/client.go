// Package telegram wraps the Bot API client with the handful of calls the
// bot needs, translating library errors into the domain's error types.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handle references one live chat message.
type Handle struct {
	ChatID    int64
	MessageID int
}

// ChatInfo is the subset of chat metadata the gate needs.
type ChatInfo struct {
	ID       int64
	Title    string
	Username string
}

// CopyOptions tune a single copyMessage call.
type CopyOptions struct {
	Caption        string
	ParseMode      string
	ProtectContent bool
}

// RateLimitError carries the wait the Bot API asked for. The delivery engine
// honors exactly this duration instead of guessing.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Client is the concrete transport over go-telegram-bot-api.
type Client struct {
	api *tgbotapi.BotAPI
	log *slog.Logger
}

// New logs the bot in and returns a Client.
func New(token string, log *slog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("bot authorized", "username", api.Self.UserName)
	return &Client{api: api, log: log}, nil
}

// Username returns the bot's @-name, used to mint deep links.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Updates opens the long-poll update channel.
func (c *Client) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query", "chat_join_request"}
	return c.api.GetUpdatesChan(u)
}

// StopUpdates shuts the long-poll loop down.
func (c *Client) StopUpdates() {
	c.api.StopReceivingUpdates()
}

// CopyMessage copies a channel message to dest and returns the new handle.
// The request is built by hand because the library predates protect_content.
func (c *Client) CopyMessage(ctx context.Context, src Handle, dest int64, opts CopyOptions) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", dest)
	params.AddNonZero64("from_chat_id", src.ChatID)
	params.AddNonZero("message_id", src.MessageID)
	params.AddNonEmpty("caption", opts.Caption)
	params.AddNonEmpty("parse_mode", opts.ParseMode)
	params.AddBool("protect_content", opts.ProtectContent)
	resp, err := c.api.MakeRequest("copyMessage", params)
	if err != nil {
		return Handle{}, translate(err)
	}
	var result struct {
		MessageID int `json:"message_id"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return Handle{}, fmt.Errorf("decode copyMessage result: %w", err)
	}
	return Handle{ChatID: dest, MessageID: result.MessageID}, nil
}

// ForwardMessage forwards a message, keeping the origin header. Used by the
// upload flow to move files into the storage channel.
func (c *Client) ForwardMessage(ctx context.Context, fromChat, toChat int64, messageID int) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	msg, err := c.api.Send(tgbotapi.NewForward(toChat, fromChat, messageID))
	if err != nil {
		return Handle{}, translate(err)
	}
	return Handle{ChatID: toChat, MessageID: msg.MessageID}, nil
}

// SendMessage sends an HTML-formatted message with an optional keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return Handle{}, translate(err)
	}
	return Handle{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// EditMessage rewrites a previously sent message's text and keyboard.
func (c *Client) EditMessage(ctx context.Context, h Handle, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var cfg tgbotapi.Chattable
	if markup != nil {
		edit := tgbotapi.NewEditMessageTextAndMarkup(h.ChatID, h.MessageID, text, *markup)
		edit.ParseMode = tgbotapi.ModeHTML
		cfg = edit
	} else {
		edit := tgbotapi.NewEditMessageText(h.ChatID, h.MessageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		cfg = edit
	}
	if _, err := c.api.Request(cfg); err != nil {
		return translate(err)
	}
	return nil
}

// DeleteMessage removes a live chat message.
func (c *Client) DeleteMessage(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(h.ChatID, h.MessageID)); err != nil {
		return translate(err)
	}
	return nil
}

// CreateInviteLink mints a fresh invite link for a channel. joinRequest
// selects the approval flow; expiry of zero leaves the link permanent.
func (c *Client) CreateInviteLink(ctx context.Context, chatID int64, joinRequest bool, expiry time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:         tgbotapi.ChatConfig{ChatID: chatID},
		CreatesJoinRequest: joinRequest,
	}
	if expiry > 0 {
		cfg.ExpireDate = int(time.Now().Add(expiry).Unix())
	}
	resp, err := c.api.Request(cfg)
	if err != nil {
		return "", translate(err)
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invite link: %w", err)
	}
	return link.InviteLink, nil
}

// IsMember reports whether a user currently belongs to a chat.
func (c *Client) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return false, translate(err)
	}
	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	case "restricted":
		return member.IsMember, nil
	default:
		return false, nil
	}
}

// GetChat fetches channel metadata for the gate's buttons.
func (c *Client) GetChat(ctx context.Context, chatID int64) (ChatInfo, error) {
	if err := ctx.Err(); err != nil {
		return ChatInfo{}, err
	}
	chat, err := c.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		return ChatInfo{}, translate(err)
	}
	return ChatInfo{ID: chat.ID, Title: chat.Title, Username: chat.UserName}, nil
}

// AnswerCallback acknowledges a callback query, optionally with an alert.
func (c *Client) AnswerCallback(ctx context.Context, id, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cb := tgbotapi.NewCallback(id, text)
	cb.ShowAlert = alert
	if _, err := c.api.Request(cb); err != nil {
		return translate(err)
	}
	return nil
}

// IsForbidden reports whether err means the user blocked the bot or is
// otherwise unreachable, so broadcast can deactivate them.
func IsForbidden(err error) bool {
	var tgErr *tgbotapi.Error
	return errors.As(err, &tgErr) && tgErr.Code == 403
}

// translate maps library errors to the domain's error types. Flood control
// surfaces as RateLimitError carrying the server-provided wait.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return &RateLimitError{RetryAfter: time.Duration(tgErr.RetryAfter) * time.Second}
	}
	return err
}
