package hands

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval is roughly a 30 fps camera
const DefaultFrameInterval = 33 * time.Millisecond

// Queue is a push-fed source. Producers (the HTTP API, the keyboard UI) Push
// the latest pose; every frame tick Next returns whatever was pushed last, so
// a held pose keeps producing frames just like a camera would. Before the
// first Push it reports zero hands.
type Queue struct {
	pace *pacer

	mu     sync.Mutex
	latest Snapshot
	pushes uint64
	closed bool
}

// NewQueue returns a queue that emits a frame every interval. A non-positive
// interval uses DefaultFrameInterval.
func NewQueue(interval time.Duration) *Queue {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Queue{pace: newPacer(interval)}
}

// Push replaces the pose returned by subsequent frames
func (q *Queue) Push(snap Snapshot) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.latest = Snapshot{Hands: append([]HandState(nil), snap.Hands...)}
	q.pushes++
	return nil
}

// Pushes returns how many snapshots have been pushed
func (q *Queue) Pushes() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushes
}

// Next implements Source
func (q *Queue) Next(ctx context.Context) (Snapshot, error) {
	if err := q.pace.wait(ctx); err != nil {
		return Snapshot{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Snapshot{}, ErrClosed
	}
	return Snapshot{Hands: append([]HandState(nil), q.latest.Hands...)}, nil
}

// Close ends the queue; further Push and Next calls return ErrClosed
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.pace.stop()
	}
	return nil
}
