package bus

import (
	"context"
	"testing"
)

func TestMemory_PublishOrderPerTopic(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	var got []string
	if _, err := m.Subscribe(ctx, "a", func(p []byte) { got = append(got, string(p)) }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for _, p := range []string{"1", "2", "3"} {
		if err := m.Publish(ctx, "a", []byte(p)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	want := []string{"1", "2", "3"}
	if len(got) != len(want) {
		t.Fatalf("received %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMemory_TopicIsolation(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	var a, b int
	m.Subscribe(ctx, "a", func([]byte) { a++ })
	m.Subscribe(ctx, "b", func([]byte) { b++ })

	m.Publish(ctx, "a", []byte("x"))
	m.Publish(ctx, "a", []byte("y"))
	m.Publish(ctx, "b", []byte("z"))

	if a != 2 {
		t.Errorf("topic a deliveries = %d, want 2", a)
	}
	if b != 1 {
		t.Errorf("topic b deliveries = %d, want 1", b)
	}
}

func TestMemory_PanickingSubscriberIsolated(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	var delivered int
	m.Subscribe(ctx, "a", func([]byte) { panic("boom") })
	m.Subscribe(ctx, "a", func([]byte) { delivered++ })

	if err := m.Publish(ctx, "a", []byte("x")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if delivered != 1 {
		t.Errorf("second subscriber deliveries = %d, want 1", delivered)
	}
}

func TestMemory_Unsubscribe(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	var n int
	unsub, _ := m.Subscribe(ctx, "a", func([]byte) { n++ })

	m.Publish(ctx, "a", []byte("x"))
	unsub()
	m.Publish(ctx, "a", []byte("y"))

	if n != 1 {
		t.Errorf("deliveries = %d, want 1", n)
	}
}

func TestMemory_Recent(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	m.Publish(ctx, "a", []byte("1"))
	m.Publish(ctx, "b", []byte("2"))
	m.Publish(ctx, "a", []byte("3"))

	recent := m.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d entries, want 2", len(recent))
	}
	if recent[0].Topic != "b" || string(recent[0].Payload) != "2" {
		t.Errorf("recent[0] = %+v, want b/2", recent[0])
	}
	if recent[1].Topic != "a" || string(recent[1].Payload) != "3" {
		t.Errorf("recent[1] = %+v, want a/3", recent[1])
	}

	if got := m.Recent(0); len(got) != 3 {
		t.Errorf("Recent(0) returned %d entries, want 3", len(got))
	}
}

func TestMemory_HistoryBounded(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	for i := 0; i < DefaultHistorySize+100; i++ {
		m.Publish(ctx, "a", []byte{byte(i)})
	}

	if got := len(m.Recent(0)); got != DefaultHistorySize {
		t.Errorf("history length = %d, want %d", got, DefaultHistorySize)
	}
}

func TestMemory_Store(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("Get on missing key reported ok")
	}

	m.Set(ctx, "k", []byte("v1"))
	m.Set(ctx, "k", []byte("v2")) // overwrite, not append

	v, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(v) != "v2" {
		t.Errorf("Get = %q, want %q", v, "v2")
	}
}
