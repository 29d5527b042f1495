package domain

import (
	"context"
	"io"
	"time"
)

// MessageListOpts controls pagination and filtering for message listing.
// Cursor is the opaque token from a previous page's NextToken; empty starts
// from the newest message. ContactType filters by kind when non-empty.
type MessageListOpts struct {
	Limit       int
	Cursor      string
	ContactType ContactKind
}

// MessageList is one page of archived messages, newest first.
type MessageList struct {
	Messages  []ContactMessage `json:"messages"`
	NextToken string           `json:"next_token,omitempty"`
	Count     int              `json:"count"`
}

// Stats aggregates archive and blocklist counters for the admin API.
type Stats struct {
	TotalMessages      int64 `json:"total_messages"`
	BlockedCount       int64 `json:"blocked_count"`
	UnblockedCount     int64 `json:"unblocked_count"`
	TotalBlockedIPs    int64 `json:"total_blocked_ips"`
	RecentMessages24h  int64 `json:"recent_messages_24h"`
	ConsultingMessages int64 `json:"consulting_messages"`
	StandardMessages   int64 `json:"standard_messages"`
}

// MessageStore persists archived contact messages. Records are write-once;
// there is no update or delete operation.
type MessageStore interface {
	Create(ctx context.Context, m ContactMessage) error
	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (ContactMessage, error)
	// List returns ErrInvalidCursor for a malformed pagination token.
	List(ctx context.Context, opts MessageListOpts) (MessageList, error)
	Stats(ctx context.Context) (Stats, error)
}

// BlocklistStore manages the blocked-IP list.
type BlocklistStore interface {
	IsBlocked(ctx context.Context, ip string) (bool, error)
	List(ctx context.Context) ([]BlockedContact, error)
	// Block returns ErrAlreadyExists when the IP already has a live entry.
	Block(ctx context.Context, b BlockedContact) error
	// Unblock returns ErrNotFound for an unknown id.
	Unblock(ctx context.Context, id string) error
}

// QueueMessage is one in-flight queue entry. ID is the transport's receipt
// handle, used to acknowledge the entry.
type QueueMessage struct {
	ID      string
	Payload []byte
}

// Queue is an at-least-once message queue. Entries returned by Receive stay
// pending until acknowledged; unacked entries become eligible for redelivery
// through Reclaim after sitting idle.
type Queue interface {
	Publish(ctx context.Context, payload []byte) error
	// Receive blocks up to the given duration for new entries. It returns an
	// empty slice (not an error) when nothing arrived.
	Receive(ctx context.Context, count int, block time.Duration) ([]QueueMessage, error)
	Ack(ctx context.Context, ids ...string) error
	// Reclaim returns pending entries idle for at least minIdle, transferring
	// ownership to this consumer for another delivery attempt.
	Reclaim(ctx context.Context, minIdle time.Duration, count int) ([]QueueMessage, error)
}

// EventBus publishes ephemeral events (archived-message notifications for the
// admin dashboard feed).
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter stores raw payload copies in object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
