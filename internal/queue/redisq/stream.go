package redisq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jscomlabs/contactd/internal/domain"
)

// streamMaxLen is the approximate maximum length for queue streams, enforced
// via XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// StreamQueue implements domain.Queue on a Redis Stream with a consumer
// group. Entries read via Receive stay in the group's pending list until
// acknowledged with Ack; unacked entries are redelivered through Reclaim
// once they have sat idle long enough. This gives the pipeline at-least-once
// delivery with explicit acknowledgment.
type StreamQueue struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string
}

// NewStreamQueue creates a StreamQueue and ensures the stream's consumer
// group exists. Creating an already-existing group is not an error.
func NewStreamQueue(ctx context.Context, c *Client, stream, group, consumer string) (*StreamQueue, error) {
	q := &StreamQueue{
		rdb:      c.Underlying(),
		stream:   stream,
		group:    group,
		consumer: consumer,
	}

	err := q.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("redisq: create group %s on %s: %w", group, stream, err)
	}

	return q, nil
}

// Publish appends a payload to the stream using XADD with approximate
// trimming.
func (q *StreamQueue) Publish(ctx context.Context, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := q.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redisq: publish to %s: %w", q.stream, err)
	}
	return nil
}

// Receive reads up to count new entries for this consumer, blocking up to the
// given duration. It returns an empty slice (not an error) when nothing
// arrived before the block expired.
func (q *StreamQueue) Receive(ctx context.Context, count int, block time.Duration) ([]domain.QueueMessage, error) {
	args := &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(count),
		Block:    block,
	}

	results, err := q.rdb.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redisq: read %s: %w", q.stream, err)
	}

	var messages []domain.QueueMessage
	for _, s := range results {
		messages = append(messages, convertMessages(s.Messages)...)
	}
	return messages, nil
}

// Ack acknowledges entries, removing them from the pending list. Only acked
// entries are considered delivered; everything else will be redelivered.
func (q *StreamQueue) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := q.rdb.XAck(ctx, q.stream, q.group, ids...).Err(); err != nil {
		return fmt.Errorf("redisq: ack %s: %w", q.stream, err)
	}
	return nil
}

// Reclaim transfers ownership of pending entries idle for at least minIdle to
// this consumer and returns them for another delivery attempt.
func (q *StreamQueue) Reclaim(ctx context.Context, minIdle time.Duration, count int) ([]domain.QueueMessage, error) {
	args := &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    int64(count),
	}

	claimed, _, err := q.rdb.XAutoClaim(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redisq: reclaim %s: %w", q.stream, err)
	}
	return convertMessages(claimed), nil
}

// convertMessages extracts the payload field from raw stream entries,
// skipping entries without one.
func convertMessages(in []redis.XMessage) []domain.QueueMessage {
	var out []domain.QueueMessage
	for _, msg := range in {
		payload, ok := msg.Values["payload"]
		if !ok {
			continue
		}

		var data []byte
		switch v := payload.(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		default:
			continue
		}

		out = append(out, domain.QueueMessage{
			ID:      msg.ID,
			Payload: data,
		})
	}
	return out
}

// Compile-time interface check.
var _ domain.Queue = (*StreamQueue)(nil)
