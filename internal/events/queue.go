// Package events carries roster change notifications to background consumers.
//
// Two Queue implementations exist: a bounded in-memory channel for
// development and tests, and a Redis list using LPUSH/BRPOP so several
// server instances can share one stream of events.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event types.
const (
	TypeRosterImported = "roster.imported"
)

// Event describes a change to a course roster.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	CourseID   string    `json:"courseId"`
	UserID     string    `json:"userId,omitempty"`
	Count      int       `json:"count"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewEvent stamps a new event with a random id and the current time.
func NewEvent(eventType, courseID, userID string, count int) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		CourseID:   courseID,
		UserID:     userID,
		Count:      count,
		OccurredAt: time.Now().UTC(),
	}
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, ev Event) error
	Consume(ctx context.Context) (<-chan Event, error)
}

// ErrQueueFull is returned by InMemory.Publish when the buffer is full.
var ErrQueueFull = errors.New("event queue full")

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Event
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	if size <= 0 {
		size = 100
	}
	return &InMemory{ch: make(chan Event, size)}
}

// Publish enqueues an event without blocking. A full buffer drops the event
// and returns ErrQueueFull.
func (q *InMemory) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume returns a channel for workers. It closes when ctx is cancelled.
func (q *InMemory) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case ev := <-q.ch:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Len returns the number of buffered events.
func (q *InMemory) Len() int { return len(q.ch) }

// RedisQueue implements a Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// DefaultRedisKey is the list events are pushed to.
const DefaultRedisKey = "rollcall:events"

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues an event as JSON.
func (q *RedisQueue) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

// Consume streams events using BRPOP. Undecodable entries are skipped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					// Back off briefly so a dead connection does not spin.
					select {
					case <-time.After(time.Second):
					case <-ctx.Done():
						return
					}
				}
				continue
			}
			if len(res) != 2 {
				continue
			}

			var ev Event
			if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
