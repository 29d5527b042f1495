package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jscomlabs/contactd/internal/domain"
)

// MessageStore implements domain.MessageStore using PostgreSQL.
type MessageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore creates a new MessageStore backed by the given connection
// pool.
func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Create inserts an archived message. Records are write-once; there is no
// corresponding update.
func (s *MessageStore) Create(ctx context.Context, m domain.ContactMessage) error {
	const query = `
		INSERT INTO contact_messages (
			id, contact_name, contact_email, contact_message,
			ip_address, user_agent, ts, is_blocked, contact_type,
			company_name, industry
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		m.ID,
		nullable(m.ContactName),
		nullable(m.ContactEmail),
		m.ContactMessage,
		m.IPAddress,
		nullable(m.UserAgent),
		m.Timestamp,
		m.IsBlocked,
		string(m.ContactType),
		nullable(m.CompanyName),
		nullable(m.Industry),
	)
	if err != nil {
		return fmt.Errorf("postgres: create message: %w", err)
	}
	return nil
}

// Get returns a single archived message or domain.ErrNotFound.
func (s *MessageStore) Get(ctx context.Context, id string) (domain.ContactMessage, error) {
	const query = `
		SELECT id, contact_name, contact_email, contact_message,
		       ip_address, user_agent, ts, is_blocked, contact_type,
		       company_name, industry
		FROM contact_messages
		WHERE id = $1`

	m, err := scanMessage(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ContactMessage{}, domain.ErrNotFound
		}
		return domain.ContactMessage{}, fmt.Errorf("postgres: get message %s: %w", id, err)
	}
	return m, nil
}

// List returns one page of archived messages, newest first, using keyset
// pagination over (ts, id).
func (s *MessageStore) List(ctx context.Context, opts domain.MessageListOpts) (domain.MessageList, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	query := `
		SELECT id, contact_name, contact_email, contact_message,
		       ip_address, user_agent, ts, is_blocked, contact_type,
		       company_name, industry
		FROM contact_messages`

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if opts.Cursor != "" {
		c, err := decodeCursor(opts.Cursor)
		if err != nil {
			return domain.MessageList{}, err
		}
		conds = append(conds, fmt.Sprintf("(ts, id) < (%s, %s)", arg(c.Timestamp), arg(c.ID)))
	}
	if opts.ContactType != "" {
		conds = append(conds, "contact_type = "+arg(string(opts.ContactType)))
	}

	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	// Fetch one extra row to know whether another page exists.
	query += " ORDER BY ts DESC, id DESC LIMIT " + arg(limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.MessageList{}, fmt.Errorf("postgres: list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ContactMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return domain.MessageList{}, fmt.Errorf("postgres: list messages scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return domain.MessageList{}, fmt.Errorf("postgres: list messages rows: %w", err)
	}

	var nextToken string
	if len(messages) > limit {
		messages = messages[:limit]
		last := messages[len(messages)-1]
		nextToken = encodeCursor(cursor{Timestamp: last.Timestamp, ID: last.ID})
	}

	return domain.MessageList{
		Messages:  messages,
		NextToken: nextToken,
		Count:     len(messages),
	}, nil
}

// Stats computes the admin statistics in a single round trip per table.
func (s *MessageStore) Stats(ctx context.Context) (domain.Stats, error) {
	const messageQuery = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_blocked),
			COUNT(*) FILTER (WHERE NOT is_blocked),
			COUNT(*) FILTER (WHERE ts >= $1),
			COUNT(*) FILTER (WHERE contact_type = 'consulting'),
			COUNT(*) FILTER (WHERE contact_type = 'standard')
		FROM contact_messages`

	cutoff := time.Now().Add(-24 * time.Hour).Unix()

	var st domain.Stats
	err := s.pool.QueryRow(ctx, messageQuery, cutoff).Scan(
		&st.TotalMessages,
		&st.BlockedCount,
		&st.UnblockedCount,
		&st.RecentMessages24h,
		&st.ConsultingMessages,
		&st.StandardMessages,
	)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("postgres: message stats: %w", err)
	}

	err = s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM blocked_contacts").Scan(&st.TotalBlockedIPs)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("postgres: blocklist stats: %w", err)
	}

	return st, nil
}

// rowScanner abstracts pgx.Row / pgx.Rows for scanMessage.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (domain.ContactMessage, error) {
	var (
		m           domain.ContactMessage
		name        *string
		email       *string
		userAgent   *string
		companyName *string
		industry    *string
		contactType string
	)
	err := row.Scan(
		&m.ID, &name, &email, &m.ContactMessage,
		&m.IPAddress, &userAgent, &m.Timestamp, &m.IsBlocked, &contactType,
		&companyName, &industry,
	)
	if err != nil {
		return domain.ContactMessage{}, err
	}
	m.ContactName = deref(name)
	m.ContactEmail = deref(email)
	m.UserAgent = deref(userAgent)
	m.CompanyName = deref(companyName)
	m.Industry = deref(industry)
	m.ContactType = domain.ContactKind(contactType)
	return m, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Compile-time interface check.
var _ domain.MessageStore = (*MessageStore)(nil)
