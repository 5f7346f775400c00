package http

import (
	"bufio"
	"context"
	"errors"
	"sync"
)

var ErrPoolClosed = errors.New("http: worker pool closed")

type sessionBuffers struct {
	reader *bufio.Reader
	writer *bufio.Writer
}

// WorkerPool bounds the number of concurrent sessions. Each slot owns a
// preallocated reader and writer which are reset onto every connection the
// slot serves.
type WorkerPool struct {
	ready     chan *sessionBuffers
	size      int
	closed    chan struct{}
	closeOnce sync.Once
}

func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = DefaultMaxSessions
	}

	wp := &WorkerPool{
		ready:  make(chan *sessionBuffers, size),
		size:   size,
		closed: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		wp.ready <- &sessionBuffers{
			reader: bufio.NewReaderSize(nil, DefaultReadBufferSize),
			writer: bufio.NewWriterSize(nil, DefaultWriteBufferSize),
		}
	}
	return wp
}

// Acquire blocks until a slot is free, ctx is done or the pool is closed.
func (wp *WorkerPool) Acquire(ctx context.Context) (*sessionBuffers, error) {
	select {
	case <-wp.closed:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case buffers := <-wp.ready:
		return buffers, nil
	case <-wp.closed:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close makes every pending and future Acquire fail. Slots in use can still
// be released.
func (wp *WorkerPool) Close() {
	wp.closeOnce.Do(func() {
		close(wp.closed)
	})
}

func (wp *WorkerPool) Release(buffers *sessionBuffers) {
	buffers.reader.Reset(nil)
	buffers.writer.Reset(nil)
	wp.ready <- buffers
}

func (wp *WorkerPool) Size() int {
	return wp.size
}

// InUse is the number of slots currently serving a session.
func (wp *WorkerPool) InUse() int {
	return wp.size - len(wp.ready)
}
