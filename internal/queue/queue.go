// Package queue serializes message processing: discovery is fast and
// frequent, handling is slow and rate-limited, so everything funnels
// through one FIFO consumed by exactly one worker.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pacing is the enforced minimum gap between items, applied whether the
// previous item succeeded or failed.
const Pacing = 500 * time.Millisecond

type Item struct {
	ChatGUID   string
	Text       string
	EnqueuedAt time.Time
}

// ProcessFunc handles one item to completion, including reply delivery.
type ProcessFunc func(ctx context.Context, item Item) error

// FailureFunc is told about items that errored or panicked. Items are
// never retried or re-enqueued.
type FailureFunc func(ctx context.Context, item Item, err error)

// Queue is an unbounded FIFO with a never-blocking Enqueue and a single
// worker goroutine started by Run. The single-consumer invariant is
// structural: only Run pops.
type Queue struct {
	mu     sync.Mutex
	items  []Item
	wake   chan struct{}
	pacing time.Duration

	process   ProcessFunc
	onFailure FailureFunc
	log       zerolog.Logger
}

func New(process ProcessFunc, onFailure FailureFunc, log zerolog.Logger) *Queue {
	return &Queue{
		wake:      make(chan struct{}, 1),
		pacing:    Pacing,
		process:   process,
		onFailure: onFailure,
		log:       log.With().Str("component", "queue").Logger(),
	}
}

// Enqueue appends an item and nudges the worker. Safe to call from any
// goroutine at any time; never blocks.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	depth := len(q.items)
	q.mu.Unlock()

	q.log.Debug().Str("chat", item.ChatGUID).Int("depth", depth).Msg("enqueued")

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) pop() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Item{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Run consumes items until ctx is cancelled. It must be the only caller
// popping the queue.
func (q *Queue) Run(ctx context.Context) {
	for {
		item, ok := q.pop()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-ctx.Done():
				return
			}
		}

		if err := q.processOne(ctx, item); err != nil {
			q.log.Error().Err(err).Str("chat", item.ChatGUID).Msg("item failed")
			if q.onFailure != nil {
				q.onFailure(ctx, item, err)
			}
		}

		// Throttle against downstream rate limits, success or not.
		select {
		case <-time.After(q.pacing):
		case <-ctx.Done():
			return
		}
	}
}

// processOne isolates a single item: an error or panic must never take
// down the worker.
func (q *Queue) processOne(ctx context.Context, item Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing item: %v", r)
		}
	}()
	return q.process(ctx, item)
}
