package save

import (
	"context"
	"io"
	"log"
	"sync/atomic"
	"time"

	"idlecraft.ai/internal/persistence/blobstore"
)

// Blob is an encoded save waiting to be written.
type Blob struct {
	Key  string
	Data []byte
}

// Writer drains encoded blobs into a store off the game loop.
type Writer struct {
	store blobstore.Store
	ch    chan Blob
	log   *log.Logger

	written atomic.Uint64
	failed  atomic.Uint64
}

func NewWriter(store blobstore.Store, buffer int, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Writer{store: store, ch: make(chan Blob, buffer), log: logger}
}

// Submit queues a blob without blocking. It returns false when the queue is full.
func (w *Writer) Submit(b Blob) bool {
	select {
	case w.ch <- b:
		return true
	default:
		w.log.Printf("save: queue full, dropping %q", b.Key)
		return false
	}
}

// Run writes queued blobs until ctx is done, then writes whatever is still queued.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case b := <-w.ch:
			w.write(ctx, b)
		}
	}
}

func (w *Writer) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case b := <-w.ch:
			w.write(ctx, b)
		default:
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, b Blob) {
	if err := w.store.SaveBlob(ctx, b.Key, b.Data); err != nil {
		w.failed.Add(1)
		w.log.Printf("save: write %q: %v", b.Key, err)
		return
	}
	w.written.Add(1)
}

func (w *Writer) Written() uint64 { return w.written.Load() }
func (w *Writer) Failed() uint64  { return w.failed.Load() }
