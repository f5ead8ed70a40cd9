package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"n8napp/internal/session"
)

type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// ExecSQL executes raw SQL (used for schema bootstrap).
// Caller is responsible for idempotency (schema.sql should be).
func (s *Store) ExecSQL(ctx context.Context, sql string) error {
	_, err := s.pool.Exec(ctx, sql)
	return err
}

// Sessions returns a session.Backend bound to one session id. Records
// written through it expire ttl after their last write.
func (s *Store) Sessions(sessionID string, ttl time.Duration) *SessionBackend {
	if ttl <= 0 {
		ttl = session.DefaultSessionTTL
	}
	return &SessionBackend{pool: s.pool, sessionID: sessionID, ttl: ttl}
}

// PurgeExpired deletes session records past their expiry and returns how
// many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM n8n.session_records WHERE expires_at <= now()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type SessionBackend struct {
	pool      *pgxpool.Pool
	sessionID string
	ttl       time.Duration
}

var _ session.Backend = (*SessionBackend)(nil)

func (b *SessionBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := b.pool.QueryRow(ctx, `
		SELECT value::text
		FROM n8n.session_records
		WHERE session_id=$1 AND key=$2 AND expires_at > now()
	`, b.sessionID, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (b *SessionBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO n8n.session_records (session_id, key, value, expires_at)
		VALUES ($1,$2,$3::jsonb, now() + $4::interval)
		ON CONFLICT (session_id, key) DO UPDATE SET
		  value=EXCLUDED.value,
		  expires_at=EXCLUDED.expires_at,
		  updated_at=now()
	`, b.sessionID, key, jsonOrEmpty(value), intervalOf(b.ttl))
	return err
}

func (b *SessionBackend) Delete(ctx context.Context, key string) error {
	_, err := b.pool.Exec(ctx, `
		DELETE FROM n8n.session_records WHERE session_id=$1 AND key=$2
	`, b.sessionID, key)
	return err
}

func jsonOrEmpty(b []byte) string {
	if len(b) == 0 {
		return "{}"
	}
	return string(b)
}

// intervalOf renders a duration as a PostgreSQL interval literal.
func intervalOf(d time.Duration) string {
	return fmt.Sprintf("%d milliseconds", d.Milliseconds())
}
