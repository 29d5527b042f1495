package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jscomlabs/contactd/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint
// violation.
const uniqueViolation = "23505"

// BlocklistStore implements domain.BlocklistStore using PostgreSQL.
type BlocklistStore struct {
	pool *pgxpool.Pool
}

// NewBlocklistStore creates a new BlocklistStore backed by the given
// connection pool.
func NewBlocklistStore(pool *pgxpool.Pool) *BlocklistStore {
	return &BlocklistStore{pool: pool}
}

// IsBlocked reports whether the IP address has a live blocklist entry. It is
// a best-effort point-in-time check with no atomicity guarantee against
// concurrent Block/Unblock calls.
func (s *BlocklistStore) IsBlocked(ctx context.Context, ip string) (bool, error) {
	var blocked bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM blocked_contacts WHERE ip_address = $1)",
		ip,
	).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("postgres: blocklist lookup %s: %w", ip, err)
	}
	return blocked, nil
}

// List returns every live blocklist entry.
func (s *BlocklistStore) List(ctx context.Context) ([]domain.BlockedContact, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, ip_address, user_agent FROM blocked_contacts ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list blocked contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.BlockedContact
	for rows.Next() {
		var b domain.BlockedContact
		if err := rows.Scan(&b.ID, &b.IPAddress, &b.UserAgent); err != nil {
			return nil, fmt.Errorf("postgres: list blocked contacts scan: %w", err)
		}
		b.IsBlocked = true
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list blocked contacts rows: %w", err)
	}
	return out, nil
}

// Block inserts a new blocklist entry. The unique index on ip_address
// enforces at most one live entry per IP; a duplicate maps to
// domain.ErrAlreadyExists.
func (s *BlocklistStore) Block(ctx context.Context, b domain.BlockedContact) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO blocked_contacts (id, ip_address, user_agent) VALUES ($1, $2, $3)",
		b.ID, b.IPAddress, b.UserAgent,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: block %s: %w", b.IPAddress, err)
	}
	return nil
}

// Unblock removes a blocklist entry by id, returning domain.ErrNotFound when
// no such entry exists.
func (s *BlocklistStore) Unblock(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM blocked_contacts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: unblock %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.BlocklistStore = (*BlocklistStore)(nil)
