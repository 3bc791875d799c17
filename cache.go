package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"
)

const cacheTTL = 30 * 24 * time.Hour

// VerdictStore is the opaque, TTL-bounded key/value the Verdict Cache
// (spec.md §4.8) is built on. Implementations must never fail the
// caller's request on a storage error; callers are expected to log
// and proceed live instead.
type VerdictStore interface {
	Get(ctx context.Context, email string) (*Verdict, error)
	Put(ctx context.Context, email string, v Verdict) error
}

// PostgresVerdictStore persists verdicts to the verification_cache
// table described in spec.md §6, translated from the original
// service's SQLite DDL.
type PostgresVerdictStore struct {
	db *sql.DB
}

func NewPostgresVerdictStore(db *sql.DB) *PostgresVerdictStore {
	return &PostgresVerdictStore{db: db}
}

const createVerificationCacheTable = `
CREATE TABLE IF NOT EXISTS verification_cache (
	email       TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	reason      TEXT,
	score       INTEGER,
	provider    TEXT,
	risk_level  TEXT,
	checks      JSONB,
	verified_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verification_cache_email ON verification_cache(email);
CREATE INDEX IF NOT EXISTS idx_verification_cache_expires_at ON verification_cache(expires_at);
`

// EnsureSchema creates the verification_cache table if it does not
// already exist.
func (s *PostgresVerdictStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createVerificationCacheTable)
	return err
}

// Get returns the cached verdict for email if an unexpired row
// exists. A cache miss (expired or absent) is reported as (nil, nil).
func (s *PostgresVerdictStore) Get(ctx context.Context, email string) (*Verdict, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT status, reason, score, provider, risk_level, checks
		FROM verification_cache
		WHERE email = $1 AND expires_at > now()
	`, email)

	var (
		v          Verdict
		checksJSON []byte
	)
	v.Email = email
	if err := row.Scan(&v.Status, &v.Reason, &v.Score, &v.Provider, &v.RiskLevel, &checksJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(checksJSON, &v.Checks); err != nil {
		return nil, err
	}
	v.Cached = true
	return &v, nil
}

// Put writes v under email with expires_at = now + 30 days, replacing
// any existing row for the same key.
func (s *PostgresVerdictStore) Put(ctx context.Context, email string, v Verdict) error {
	checksJSON, err := json.Marshal(v.Checks)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verification_cache (email, status, reason, score, provider, risk_level, checks, verified_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now() + interval '30 days')
		ON CONFLICT (email) DO UPDATE SET
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			score = EXCLUDED.score,
			provider = EXCLUDED.provider,
			risk_level = EXCLUDED.risk_level,
			checks = EXCLUDED.checks,
			verified_at = now(),
			expires_at = now() + interval '30 days'
	`, email, v.Status, v.Reason, v.Score, v.Provider, v.RiskLevel, checksJSON)
	return err
}

// memoryVerdictStore is an in-process VerdictStore used by tests.
type memoryVerdictStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	verdict   Verdict
	expiresAt time.Time
}

func newMemoryVerdictStore() *memoryVerdictStore {
	return &memoryVerdictStore{entries: make(map[string]memoryEntry)}
}

func (s *memoryVerdictStore) Get(_ context.Context, email string) (*Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[email]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	v := entry.verdict
	v.Cached = true
	return &v, nil
}

func (s *memoryVerdictStore) Put(_ context.Context, email string, v Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[email] = memoryEntry{verdict: v, expiresAt: time.Now().Add(cacheTTL)}
	return nil
}
