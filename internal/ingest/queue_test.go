package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestWorkQueue_FIFO(t *testing.T) {
	q := newWorkQueue(8, nil)
	ctx := context.Background()

	q.Enqueue(json.RawMessage(`1`))
	q.Enqueue(json.RawMessage(`2`))

	for _, want := range []string{"1", "2"} {
		got, ok := q.Dequeue(ctx)
		if !ok {
			t.Fatal("Dequeue returned !ok")
		}
		if string(got) != want {
			t.Errorf("Dequeue = %s, want %s", got, want)
		}
	}
}

func TestWorkQueue_EvictsOldestWhenFull(t *testing.T) {
	q := newWorkQueue(2, nil)
	ctx := context.Background()

	q.Enqueue(json.RawMessage(`1`))
	q.Enqueue(json.RawMessage(`2`))
	q.Enqueue(json.RawMessage(`3`)) // evicts 1

	got1, _ := q.Dequeue(ctx)
	got2, _ := q.Dequeue(ctx)
	if string(got1) != "2" || string(got2) != "3" {
		t.Errorf("queue contents = %s,%s, want 2,3", got1, got2)
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1 (the evicted item)", q.Dropped())
	}
}

func TestWorkQueue_DequeueUnblocksOnCancel(t *testing.T) {
	q := newWorkQueue(2, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()
	select {
	case ok := <-done:
		if ok {
			t.Error("Dequeue returned ok after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not unblock on cancel")
	}
}
