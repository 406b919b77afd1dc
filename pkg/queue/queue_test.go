package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()
	for i := range 5 {
		if err := q.Push(i); err != nil {
			t.Fatalf("Push error: %v", err)
		}
	}
	if q.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", q.Len())
	}
	for want := range 5 {
		got, err := q.Pop(context.Background())
		if err != nil {
			t.Fatalf("Pop error: %v", err)
		}
		if got != want {
			t.Fatalf("Pop = %d, want %d", got, want)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Fatal("TryPop on empty queue succeeded")
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := New[string]()
	got := make(chan string, 1)
	go func() {
		v, err := q.Pop(context.Background())
		if err != nil {
			t.Errorf("Pop error: %v", err)
		}
		got <- v
	}()

	time.Sleep(10 * time.Millisecond)
	if err := q.Push("hello"); err != nil {
		t.Fatalf("Push error: %v", err)
	}
	select {
	case v := <-got:
		if v != "hello" {
			t.Fatalf("Pop = %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up")
	}
}

func TestQueue_PopContext(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Pop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Pop error = %v, want DeadlineExceeded", err)
	}
}

func TestQueue_CloseKeepsItems(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Close()
	q.Close()

	if err := q.Push(3); !errors.Is(err, ErrClosed) {
		t.Fatalf("Push after Close = %v, want ErrClosed", err)
	}
	if got := q.Drain(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Drain = %v", got)
	}
	if _, err := q.Pop(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Pop on closed empty queue = %v, want ErrClosed", err)
	}
	select {
	case <-q.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestQueue_CloseWithErrorDiscards(t *testing.T) {
	q := New[int]()
	q.Push(1)
	boom := errors.New("boom")
	q.CloseWithError(boom)
	if _, err := q.Pop(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Pop = %v, want boom", err)
	}
	if q.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", q.Len())
	}
}

func TestQueue_CloseWakesWaiter(t *testing.T) {
	q := New[int]()
	done := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("Pop = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake Pop")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New[int]()
	const producers, each = 8, 500

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				q.Push(p*each + i)
			}
		}()
	}

	seen := make(map[int]bool)
	last := make(map[int]int)
	for range producers * each {
		v, err := q.Pop(context.Background())
		if err != nil {
			t.Fatalf("Pop error: %v", err)
		}
		p := v / each
		if prev, ok := last[p]; ok && v <= prev {
			t.Fatalf("producer %d out of order: %d after %d", p, v, prev)
		}
		last[p] = v
		seen[v] = true
	}
	wg.Wait()
	if len(seen) != producers*each {
		t.Fatalf("saw %d items, want %d", len(seen), producers*each)
	}
}
