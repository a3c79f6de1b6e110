// Package model contains the struct definitions shared across packages.
package model

import (
	"time"
)

// SubscribeMode controls how a force-subscribe channel admits users. A type
// declared via "type X string" gives better type safety than plain strings.
type SubscribeMode string

const (
	// ModeOpen channels are joined directly through an invite link.
	ModeOpen SubscribeMode = "open"
	// ModeRequest channels require approval; the invite link creates a join
	// request and a pending request already satisfies the gate.
	ModeRequest SubscribeMode = "request"
)

// FileRecord holds the metadata of one file stored in the storage channel.
// Records are immutable once written; the file bytes themselves live in the
// referenced channel message.
type FileRecord struct {
	ID          string    `json:"id"`
	ChannelID   int64     `json:"channelId"`
	MessageID   int       `json:"messageId"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	Hash        string    `json:"hash"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// BatchRecord groups previously stored files under one shareable token.
// FileIDs keeps the operator's ordering; delivery follows it exactly.
type BatchRecord struct {
	ID        string    `json:"id"`
	FileIDs   []string  `json:"fileIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// ForceSubChannel is one channel a user must join before receiving content.
type ForceSubChannel struct {
	ChatID int64         `json:"chatId"`
	Mode   SubscribeMode `json:"mode"`
}
