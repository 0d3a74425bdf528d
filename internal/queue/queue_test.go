package queue

import (
	"sync"
	"testing"
	"time"
)

// TestQueueFIFO tests that items come out in push order.
func TestQueueFIFO(t *testing.T) {
	t.Parallel()

	q := New[int]()
	for i := range 5 {
		q.Push(i)
	}

	if q.Len() != 5 {
		t.Fatalf("expected length 5, got %d", q.Len())
	}
	for i := range 5 {
		if got := q.Pop(); got != i {
			t.Errorf("expected %d, got %d", i, got)
		}
	}
	if !q.Empty() {
		t.Error("expected queue to be empty")
	}
}

// TestQueuePushAll tests that a batch stays contiguous under concurrent
// pushes.
func TestQueuePushAll(t *testing.T) {
	t.Parallel()

	q := New[int]()
	q.PushAll()
	if !q.Empty() {
		t.Fatal("expected an empty PushAll to add nothing")
	}

	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				base := (g*50 + i) * 3
				q.PushAll(base, base+1, base+2)
			}
		}()
	}
	wg.Wait()

	if q.Len() != 600 {
		t.Fatalf("expected 600 items, got %d", q.Len())
	}
	for range 200 {
		first := q.Pop()
		if first%3 != 0 {
			t.Fatalf("expected a batch to start at a multiple of 3, got %d", first)
		}
		if second, third := q.Pop(), q.Pop(); second != first+1 || third != first+2 {
			t.Fatalf("batch %d split: got %d %d", first, second, third)
		}
	}
}

// TestQueuePopBlocks tests that Pop waits for a producer.
func TestQueuePopBlocks(t *testing.T) {
	t.Parallel()

	q := New[int]()
	done := make(chan int)
	go func() {
		done <- q.Pop()
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before any item was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(42)
	select {
	case got := <-done:
		if got != 42 {
			t.Errorf("expected 42, got %d", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

// TestQueueWaitForWaiters tests the idle-consumer detection.
func TestQueueWaitForWaiters(t *testing.T) {
	t.Parallel()

	t.Run("returns true once all consumers block", func(t *testing.T) {
		t.Parallel()

		q := New[int]()
		const consumers = 3

		var wg sync.WaitGroup
		for range consumers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for q.Pop() >= 0 {
				}
			}()
		}

		if !q.WaitForWaiters(consumers) {
			t.Fatal("expected WaitForWaiters to report idle consumers")
		}
		if q.Waiting() != consumers {
			t.Errorf("expected %d waiting, got %d", consumers, q.Waiting())
		}

		for range consumers {
			q.Push(-1)
		}
		wg.Wait()
	})

	t.Run("returns false when items are pending", func(t *testing.T) {
		t.Parallel()

		q := New[int]()
		q.Push(1)
		if q.WaitForWaiters(1) {
			t.Error("expected false with pending items")
		}
	})
}

// TestQueueConcurrent tests many producers and consumers.
func TestQueueConcurrent(t *testing.T) {
	t.Parallel()

	q := New[int]()
	const producers, perProducer = 4, 100

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				q.Push(p*perProducer + i)
			}
		}()
	}

	seen := make(map[int]bool)
	for range producers * perProducer {
		v := q.Pop()
		if seen[v] {
			t.Fatalf("item %d popped twice", v)
		}
		seen[v] = true
	}
	wg.Wait()

	if len(seen) != producers*perProducer {
		t.Errorf("expected %d items, got %d", producers*perProducer, len(seen))
	}
}
