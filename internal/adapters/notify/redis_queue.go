package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultClaimIdle is how long a job may sit unacknowledged on another
// consumer before this one takes it over.
const DefaultClaimIdle = 5 * time.Minute

// RedisQueue keeps jobs in a Redis stream read through a consumer group, so
// jobs survive restarts and are acknowledged only after delivery.
//
// Pop hands out, in order: entries this consumer read before the queue was
// opened and never acknowledged, entries idle longer than the claim window
// on other consumers, then new entries.
type RedisQueue struct {
	client    *redis.Client
	stream    string
	group     string
	consumer  string
	block     time.Duration
	claimIdle time.Duration

	mu          sync.Mutex
	historyDone bool
	cursor      string
}

// NewRedisQueue creates the consumer group if needed. A non-positive
// claimIdle uses DefaultClaimIdle.
func NewRedisQueue(ctx context.Context, client *redis.Client, stream, group, consumer string, claimIdle time.Duration) (*RedisQueue, error) {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group %s: %w", group, err)
	}
	if claimIdle <= 0 {
		claimIdle = DefaultClaimIdle
	}
	return &RedisQueue{
		client:    client,
		stream:    stream,
		group:     group,
		consumer:  consumer,
		block:     5 * time.Second,
		claimIdle: claimIdle,
		cursor:    "0",
	}, nil
}

func (q *RedisQueue) Push(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{"job": string(raw)},
	}).Err()
}

func (q *RedisQueue) Pop(ctx context.Context) (*Delivery, error) {
	msg, err := q.history(ctx)
	if err == nil && msg == nil {
		msg, err = q.claim(ctx)
	}
	if err == nil && msg == nil {
		msg, err = q.read(ctx, ">", q.block)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}
	return q.delivery(ctx, *msg)
}

// history walks this consumer's pending list once. Entries read after the
// walk finishes belong to live workers and are not handed out again.
func (q *RedisQueue) history(ctx context.Context) (*redis.XMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.historyDone {
		return nil, nil
	}
	msg, err := q.read(ctx, q.cursor, -1)
	if err != nil {
		return nil, fmt.Errorf("read pending jobs: %w", err)
	}
	if msg == nil {
		q.historyDone = true
		return nil, nil
	}
	q.cursor = msg.ID
	return msg, nil
}

// claim takes over one entry left idle by another consumer.
func (q *RedisQueue) claim(ctx context.Context) (*redis.XMessage, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.stream,
		Group:  q.group,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	for _, p := range pending {
		if p.Consumer == q.consumer || p.Idle < q.claimIdle {
			continue
		}
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   q.stream,
			Group:    q.group,
			Consumer: q.consumer,
			MinIdle:  q.claimIdle,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("claim job %s from %s: %w", p.ID, p.Consumer, err)
		}
		if len(claimed) > 0 {
			return &claimed[0], nil
		}
	}
	return nil, nil
}

// read fetches one entry after id. A negative block returns at once.
func (q *RedisQueue) read(ctx context.Context, id string, block time.Duration) (*redis.XMessage, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, id},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	for _, s := range streams {
		if len(s.Messages) > 0 {
			msg := s.Messages[0]
			return &msg, nil
		}
	}
	return nil, nil
}

func (q *RedisQueue) delivery(ctx context.Context, msg redis.XMessage) (*Delivery, error) {
	id := msg.ID
	ack := func(ctx context.Context) error {
		return q.client.XAck(ctx, q.stream, q.group, id).Err()
	}
	raw, _ := msg.Values["job"].(string)
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// An unreadable entry would otherwise stay pending forever.
		_ = ack(ctx)
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &Delivery{Job: job, ack: ack}, nil
}
