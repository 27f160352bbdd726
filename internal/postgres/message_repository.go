package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yashubustudio/sentiment/internal/chat"
)

// MessageRepo stores chat users and messages.
type MessageRepo struct {
	pool *pgxpool.Pool
}

var _ chat.Repository = (*MessageRepo)(nil)

// NewMessageRepo stores chat users and messages in pool.
func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const upsertUserSQL = `
INSERT INTO users (nickname, created_at) VALUES ($1, $2)
ON CONFLICT (nickname) DO UPDATE SET nickname = EXCLUDED.nickname
RETURNING id, nickname, created_at`

// FindOrCreateUser upserts on the unique nickname and returns the stored row.
func (r *MessageRepo) FindOrCreateUser(ctx context.Context, nickname string, now time.Time) (chat.User, error) {
	var u chat.User
	err := r.pool.QueryRow(ctx, upsertUserSQL, nickname, now).Scan(&u.ID, &u.Nickname, &u.CreatedAt)
	if err != nil {
		return chat.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return u, nil
}

func (r *MessageRepo) SaveMessage(ctx context.Context, msg *chat.Message) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO messages (user_id, text, sentiment, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		msg.UserID, msg.Text, msg.Sentiment, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

const listMessagesSQL = `
SELECT m.id, m.user_id, COALESCE(u.nickname, $2), m.text, m.sentiment, m.created_at
FROM messages m
LEFT JOIN users u ON u.id = m.user_id
ORDER BY m.created_at DESC, m.id DESC
LIMIT $1`

// ListMessages returns up to limit messages, newest first. Messages whose
// user is gone are attributed to the anonymous nickname.
func (r *MessageRepo) ListMessages(ctx context.Context, limit int) ([]chat.Message, error) {
	rows, err := r.pool.Query(ctx, listMessagesSQL, limit, chat.AnonymousNickname)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (chat.Message, error) {
		var m chat.Message
		err := row.Scan(&m.ID, &m.UserID, &m.Nickname, &m.Text, &m.Sentiment, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	return msgs, nil
}

func (r *MessageRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
