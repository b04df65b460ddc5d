package notify

import (
	"context"
	"fmt"
)

// ChannelQueue is an in-process queue backed by a buffered channel.
type ChannelQueue struct {
	jobs chan Job
}

// NewChannelQueue returns a queue holding up to size jobs.
func NewChannelQueue(size int) *ChannelQueue {
	return &ChannelQueue{jobs: make(chan Job, size)}
}

// Push blocks while the queue is full.
func (q *ChannelQueue) Push(ctx context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue full: %w", ctx.Err())
	}
}

func (q *ChannelQueue) Pop(ctx context.Context) (*Delivery, error) {
	select {
	case job := <-q.jobs:
		return &Delivery{Job: job}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
