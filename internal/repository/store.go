// Package repository wraps all SQL used by the bot and the broadcast worker.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mraprguild8133/Filestore/internal/model"
)

// ErrNotFound is exported so callers can compare with errors.Is instead of
// inspecting pgx internals.
var ErrNotFound = errors.New("record not found")

const deleteTimerKey = "delete_timer"

// Store provides persistence for users, bans, files, batches and settings.
type Store struct {
	pool *pgxpool.Pool

	// defaultDeleteTimer is returned until an operator stores an override.
	defaultDeleteTimer int64
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool, defaultDeleteTimer int64) *Store {
	return &Store{pool: pool, defaultDeleteTimer: defaultDeleteTimer}
}

// SaveFile inserts an immutable file record.
func (s *Store) SaveFile(ctx context.Context, rec *model.FileRecord) error {
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO files (id, channel_id, message_id, name, size, content_type, hash, uploaded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.ID, rec.ChannelID, rec.MessageID, rec.Name, rec.Size, rec.ContentType, rec.Hash, rec.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// GetFile returns a file record by id, or ErrNotFound.
func (s *Store) GetFile(ctx context.Context, id string) (*model.FileRecord, error) {
	var rec model.FileRecord
	row := s.pool.QueryRow(ctx, `
		SELECT id, channel_id, message_id, name, size, content_type, hash, uploaded_at
		FROM files WHERE id=$1
	`, id)
	err := row.Scan(&rec.ID, &rec.ChannelID, &rec.MessageID, &rec.Name, &rec.Size, &rec.ContentType, &rec.Hash, &rec.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select file: %w", err)
	}
	return &rec, nil
}

// SaveBatch inserts a batch keeping the given file order.
func (s *Store) SaveBatch(ctx context.Context, rec *model.BatchRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO batches (id, file_ids, created_at) VALUES ($1,$2,$3)
	`, rec.ID, rec.FileIDs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetBatch returns a batch record by id, or ErrNotFound.
func (s *Store) GetBatch(ctx context.Context, id string) (*model.BatchRecord, error) {
	var rec model.BatchRecord
	row := s.pool.QueryRow(ctx, `SELECT id, file_ids, created_at FROM batches WHERE id=$1`, id)
	if err := row.Scan(&rec.ID, &rec.FileIDs, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select batch: %w", err)
	}
	return &rec, nil
}

// AddUser upserts a user, reactivating anyone who came back.
func (s *Store) AddUser(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, active, created_at) VALUES ($1, TRUE, $2)
		ON CONFLICT (id) DO UPDATE SET active = TRUE
	`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// DeactivateUser marks a user that blocked the bot so broadcasts skip them.
func (s *Store) DeactivateUser(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET active = FALSE WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}

// ListActiveUsers returns ids of every user reachable for a broadcast.
func (s *Store) ListActiveUsers(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM users WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CountUsers returns total and active user counts.
func (s *Store) CountUsers(ctx context.Context) (total, active int64, err error) {
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE active) FROM users`)
	if err := row.Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	return total, active, nil
}

// CountFiles returns how many file records exist.
func (s *Store) CountFiles(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return n, nil
}

// Ban adds a user to the ban set.
func (s *Store) Ban(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO banned_users (user_id, banned_at) VALUES ($1,$2)
		ON CONFLICT (user_id) DO NOTHING
	`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ban user: %w", err)
	}
	return nil
}

// Unban removes a user from the ban set.
func (s *Store) Unban(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM banned_users WHERE user_id=$1`, id)
	if err != nil {
		return fmt.Errorf("unban user: %w", err)
	}
	return nil
}

// IsBanned reports whether a user is in the ban set.
func (s *Store) IsBanned(ctx context.Context, id int64) (bool, error) {
	var banned bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM banned_users WHERE user_id=$1)`, id).Scan(&banned)
	if err != nil {
		return false, fmt.Errorf("check ban: %w", err)
	}
	return banned, nil
}

// ForceSubChannels lists every configured force-subscribe channel.
func (s *Store) ForceSubChannels(ctx context.Context) ([]model.ForceSubChannel, error) {
	rows, err := s.pool.Query(ctx, `SELECT chat_id, mode FROM fsub_channels ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("select channels: %w", err)
	}
	defer rows.Close()
	var out []model.ForceSubChannel
	for rows.Next() {
		var ch model.ForceSubChannel
		if err := rows.Scan(&ch.ChatID, &ch.Mode); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// AddChannel registers a force-subscribe channel.
func (s *Store) AddChannel(ctx context.Context, chatID int64, mode model.SubscribeMode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fsub_channels (chat_id, mode) VALUES ($1,$2)
		ON CONFLICT (chat_id) DO UPDATE SET mode = EXCLUDED.mode
	`, chatID, mode)
	if err != nil {
		return fmt.Errorf("add channel: %w", err)
	}
	return nil
}

// RemoveChannel drops a force-subscribe channel and its recorded requests.
func (s *Store) RemoveChannel(ctx context.Context, chatID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM fsub_channels WHERE chat_id=$1`, chatID); err != nil {
		return fmt.Errorf("remove channel: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM join_requests WHERE chat_id=$1`, chatID); err != nil {
		return fmt.Errorf("remove join requests: %w", err)
	}
	return nil
}

// RecordJoinRequest stores a pending join request seen in an update.
func (s *Store) RecordJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO join_requests (chat_id, user_id, requested_at) VALUES ($1,$2,$3)
		ON CONFLICT (chat_id, user_id) DO NOTHING
	`, chatID, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record join request: %w", err)
	}
	return nil
}

// HasJoinRequest reports whether a pending join request is on record.
func (s *Store) HasJoinRequest(ctx context.Context, chatID, userID int64) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM join_requests WHERE chat_id=$1 AND user_id=$2)
	`, chatID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check join request: %w", err)
	}
	return ok, nil
}

// DeleteTimer returns the auto-delete delay in seconds; zero disables it.
func (s *Store) DeleteTimer(ctx context.Context) (int64, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, deleteTimerKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.defaultDeleteTimer, nil
		}
		return 0, fmt.Errorf("select delete timer: %w", err)
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse delete timer %q: %w", raw, err)
	}
	return secs, nil
}

// SetDeleteTimer stores the operator override for the auto-delete delay.
func (s *Store) SetDeleteTimer(ctx context.Context, seconds int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1,$2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, deleteTimerKey, strconv.FormatInt(seconds, 10))
	if err != nil {
		return fmt.Errorf("set delete timer: %w", err)
	}
	return nil
}
