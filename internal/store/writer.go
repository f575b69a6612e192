package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type WriteState string

const (
	WriteCommitted WriteState = "committed"
	WritePending   WriteState = "pending"
	WriteFailed    WriteState = "failed"
)

type WriteStatus struct {
	Key              string     `json:"key"`
	State            WriteState `json:"state"`
	Version          uint64     `json:"version"`
	CommittedVersion uint64     `json:"committed_version"`
	Error            string     `json:"error,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Publisher receives a copy of every successfully written payload for
// mirrored keys.
type Publisher interface {
	Publish(ctx context.Context, collection string, payload []byte) error
}

// Writer serializes writes per key. Callers update their in-memory state
// first and enqueue the new document; at most one goroutine drains a key,
// and writes that pile up behind it collapse into the latest payload.
type Writer struct {
	kv       KV
	logger   *zap.Logger
	timeout  time.Duration
	mirror   Publisher
	mirrored map[string]bool

	mu     sync.Mutex
	queues map[string]*keyQueue
}

type keyQueue struct {
	next      []byte
	remove    bool
	hasNext   bool
	version   uint64
	committed uint64
	state     WriteState
	lastErr   error
	updatedAt time.Time
	done      chan struct{}
}

type WriterOption func(*Writer)

func WithTimeout(timeout time.Duration) WriterOption {
	return func(w *Writer) {
		if timeout > 0 {
			w.timeout = timeout
		}
	}
}

func WithMirror(mirror Publisher, keys ...string) WriterOption {
	return func(w *Writer) {
		if mirror == nil {
			return
		}
		w.mirror = mirror
		for _, key := range keys {
			w.mirrored[key] = true
		}
	}
}

func NewWriter(kv KV, logger *zap.Logger, opts ...WriterOption) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Writer{
		kv:       kv,
		logger:   logger.Named("writer"),
		timeout:  5 * time.Second,
		mirrored: make(map[string]bool),
		queues:   make(map[string]*keyQueue),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Read goes straight to the KV; it is meant for startup loads.
func (w *Writer) Read(ctx context.Context, key string) (string, error) {
	return w.kv.Get(ctx, key)
}

func (w *Writer) Set(key string, payload []byte) {
	w.enqueue(key, payload, false)
}

func (w *Writer) Remove(key string) {
	w.enqueue(key, nil, true)
}

func (w *Writer) enqueue(key string, payload []byte, remove bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	q, ok := w.queues[key]
	if !ok {
		q = &keyQueue{state: WriteCommitted}
		w.queues[key] = q
	}
	q.next, q.remove, q.hasNext = payload, remove, true
	q.version++
	q.state = WritePending
	q.updatedAt = time.Now().UTC()

	if q.done == nil {
		q.done = make(chan struct{})
		go w.drain(key, q)
	}
}

func (w *Writer) drain(key string, q *keyQueue) {
	for {
		w.mu.Lock()
		if !q.hasNext {
			close(q.done)
			q.done = nil
			w.mu.Unlock()
			return
		}
		payload, remove, version := q.next, q.remove, q.version
		q.next, q.hasNext = nil, false
		w.mu.Unlock()

		err := w.write(key, payload, remove)

		w.mu.Lock()
		q.updatedAt = time.Now().UTC()
		if err != nil {
			q.lastErr = err
			if version == q.version {
				q.state = WriteFailed
			}
		} else {
			q.committed = version
			q.lastErr = nil
			if version == q.version {
				q.state = WriteCommitted
			}
		}
		w.mu.Unlock()

		if err != nil {
			w.logger.Error("persist failed", zap.String("key", key), zap.Uint64("version", version), zap.Error(err))
			continue
		}
		if !remove {
			w.publish(key, payload)
		}
	}
}

func (w *Writer) write(key string, payload []byte, remove bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if remove {
		return w.kv.Remove(ctx, key)
	}
	return w.kv.Set(ctx, key, string(payload))
}

func (w *Writer) publish(key string, payload []byte) {
	if w.mirror == nil || !w.mirrored[key] {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.mirror.Publish(ctx, key, payload); err != nil {
		w.logger.Warn("mirror publish failed", zap.String("key", key), zap.Error(err))
	}
}

// Flush blocks until every queue has drained. It reports ErrWriteFailed when
// the latest write of any key did not reach the KV.
func (w *Writer) Flush(ctx context.Context) error {
	for {
		w.mu.Lock()
		waiting := make([]chan struct{}, 0, len(w.queues))
		for _, q := range w.queues {
			if q.done != nil {
				waiting = append(waiting, q.done)
			}
		}
		w.mu.Unlock()

		if len(waiting) == 0 {
			break
		}
		for _, done := range waiting {
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	for _, status := range w.Statuses() {
		if status.State == WriteFailed {
			return fmt.Errorf("%w: %s: %s", ErrWriteFailed, status.Key, status.Error)
		}
	}
	return nil
}

func (w *Writer) Status(key string) WriteStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	q, ok := w.queues[key]
	if !ok {
		return WriteStatus{Key: key, State: WriteCommitted}
	}
	return q.status(key)
}

func (w *Writer) Statuses() []WriteStatus {
	w.mu.Lock()
	statuses := make([]WriteStatus, 0, len(w.queues))
	for key, q := range w.queues {
		statuses = append(statuses, q.status(key))
	}
	w.mu.Unlock()

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Key < statuses[j].Key
	})
	return statuses
}

func (q *keyQueue) status(key string) WriteStatus {
	status := WriteStatus{
		Key:              key,
		State:            q.state,
		Version:          q.version,
		CommittedVersion: q.committed,
		UpdatedAt:        q.updatedAt,
	}
	if q.lastErr != nil {
		status.Error = q.lastErr.Error()
	}
	return status
}
