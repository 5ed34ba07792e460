package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time assertion that PostgresStore satisfies the Store interface.
var _ Store = (*PostgresStore)(nil)

const ddlConversationTurns = `
CREATE TABLE IF NOT EXISTS conversation_turns (
    id        BIGSERIAL    PRIMARY KEY,
    role      TEXT         NOT NULL,
    text      TEXT         NOT NULL,
    timestamp TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversation_turns_timestamp
    ON conversation_turns (timestamp);
`

// PostgresStore is a PostgreSQL-backed implementation of [Store], for setups
// where the conversation log should outlive the process.
//
// All methods are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore establishes a connection pool to the database at dsn and
// creates the conversation_turns table if it does not exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlConversationTurns); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Append implements [Store.Append].
func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	const q = `
		INSERT INTO conversation_turns (role, text, timestamp)
		VALUES ($1, $2, $3)`

	_, err := s.pool.Exec(ctx, q, string(entry.Role), entry.Text, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// Recent implements [Store.Recent]. It fetches the newest limit rows and
// returns them oldest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	const q = `
		SELECT role, text, timestamp
		FROM   conversation_turns
		ORDER  BY timestamp DESC, id DESC
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e    Entry
			role string
		)
		if err := row.Scan(&role, &e.Text, &e.Timestamp); err != nil {
			return Entry{}, err
		}
		e.Role = Role(role)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: scan rows: %w", err)
	}

	// Newest-first from the query; reverse into chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Close releases all connections held by the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
