package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/pagecue/internal/domain/model"
)

func pageEvent(page int) model.PageEvent {
	return model.PageEvent{Command: "advance", Page: page, PageCount: 10, Moved: true}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, pageEvent(1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	event := <-q.Dequeue(ctx)
	if event.Page != 1 {
		t.Errorf("expected page 1, got %d", event.Page)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}
	if !q.Enqueue(ctx, pageEvent(1)) || !q.Enqueue(ctx, pageEvent(2)) {
		t.Fatal("expected enqueue to succeed")
	}

	// Full: dropped without blocking.
	if q.Enqueue(ctx, pageEvent(3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_DefaultCapacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(0))
	if q.Capacity() != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, q.Capacity())
	}
}

func TestInMemoryQueue_Order(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 5; i++ {
		q.Enqueue(ctx, pageEvent(i))
	}
	events := q.Dequeue(ctx)
	for i := 0; i < 5; i++ {
		select {
		case e := <-events:
			if e.Page != i {
				t.Fatalf("expected page %d, got %d", i, e.Page)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers, perProducer = 8, 50

	received := make(chan struct{}, producers*perProducer)
	go func() {
		for range q.Dequeue(ctx) {
			received <- struct{}{}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for !q.Enqueue(ctx, pageEvent(j)) {
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()

	deadline := time.After(2 * time.Second)
	for n := 0; n < producers*perProducer; n++ {
		select {
		case <-received:
		case <-deadline:
			t.Fatalf("received %d of %d events", n, producers*perProducer)
		}
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	q.Enqueue(ctx, pageEvent(1))
	q.Enqueue(ctx, pageEvent(2))

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, pageEvent(3)) {
		t.Error("expected enqueue to fail after closing")
	}

	// Buffered events drain before the channel closes.
	var pages []int
	timeout := time.After(time.Second)
	events := q.Dequeue(ctx)
	for done := false; !done; {
		select {
		case e, ok := <-events:
			if !ok {
				done = true
				break
			}
			pages = append(pages, e.Page)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
	if len(pages) != 2 || pages[0] != 1 || pages[1] != 2 {
		t.Errorf("expected pages [1 2], got %v", pages)
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, pageEvent(1)) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
	if _, ok := <-q.Dequeue(ctx); ok {
		t.Error("expected dequeue channel to close with a cancelled context")
	}
	if !q.IsClosed() {
		t.Error("expected the queue to close once its reader is gone")
	}
	if q.Enqueue(context.Background(), pageEvent(2)) {
		t.Error("expected enqueue to fail after the reader is gone")
	}
}
