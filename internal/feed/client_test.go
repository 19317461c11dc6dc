package feed

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/reflex-trading/reflex-data/internal/model"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := ClientConfig{
		URL:           "wss://example.invalid/stocks",
		APIKey:        "test-key",
		Name:          "feed-test",
		SendQueueSize: 64,
	}
	return NewClient(cfg, nil)
}

// drainFrames empties the send queue and decodes each frame.
func drainFrames(t *testing.T, c *Client) []actionMsg {
	t.Helper()
	var out []actionMsg
	for {
		select {
		case raw := <-c.sendq:
			var msg actionMsg
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("frame %q: %v", raw, err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func paramsSet(msg actionMsg) map[string]bool {
	set := make(map[string]bool)
	for _, p := range strings.Split(msg.Params, ",") {
		set[p] = true
	}
	return set
}

func TestSubscribe_EmitsOnlyNewSymbols(t *testing.T) {
	c := newTestClient(t)

	c.Subscribe([]string{"AAPL", "MSFT"}, model.ChannelTrades)
	frames := drainFrames(t, c)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Action != "subscribe" || frames[0].Params != "T.AAPL,T.MSFT" {
		t.Errorf("frame = %+v, want subscribe T.AAPL,T.MSFT", frames[0])
	}

	// Re-subscribing an existing symbol emits only the new one.
	c.Subscribe([]string{"AAPL", "NVDA"}, model.ChannelTrades)
	frames = drainFrames(t, c)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Params != "T.NVDA" {
		t.Errorf("params = %q, want T.NVDA", frames[0].Params)
	}

	// Fully redundant subscribe emits nothing.
	c.Subscribe([]string{"AAPL"}, model.ChannelTrades)
	if frames := drainFrames(t, c); len(frames) != 0 {
		t.Errorf("redundant subscribe emitted %d frames, want 0", len(frames))
	}
}

func TestUnsubscribe_EmitsOnlyRemovedSymbols(t *testing.T) {
	c := newTestClient(t)
	c.Subscribe([]string{"AAPL", "MSFT"}, model.ChannelQuotes)
	drainFrames(t, c)

	c.Unsubscribe([]string{"AAPL", "NVDA"}, model.ChannelQuotes)
	frames := drainFrames(t, c)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Action != "unsubscribe" || frames[0].Params != "Q.AAPL" {
		t.Errorf("frame = %+v, want unsubscribe Q.AAPL", frames[0])
	}

	got := c.Subscribed(model.ChannelQuotes)
	if len(got) != 1 || got[0] != "MSFT" {
		t.Errorf("Subscribed = %v, want [MSFT]", got)
	}
}

func TestReplace_EmitsExactDiff(t *testing.T) {
	c := newTestClient(t)
	c.Subscribe([]string{"AAPL", "MSFT", "TSLA"}, model.ChannelTrades)
	drainFrames(t, c)

	c.Replace([]string{"MSFT", "NVDA"}, model.ChannelTrades)
	frames := drainFrames(t, c)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2 (unsubscribe then subscribe)", len(frames))
	}

	if frames[0].Action != "unsubscribe" {
		t.Errorf("frames[0].Action = %q, want unsubscribe", frames[0].Action)
	}
	wantRemoved := map[string]bool{"T.AAPL": true, "T.TSLA": true}
	if got := paramsSet(frames[0]); len(got) != 2 || !got["T.AAPL"] || !got["T.TSLA"] {
		t.Errorf("unsubscribe params = %v, want %v", got, wantRemoved)
	}

	if frames[1].Action != "subscribe" {
		t.Errorf("frames[1].Action = %q, want subscribe", frames[1].Action)
	}
	if frames[1].Params != "T.NVDA" {
		t.Errorf("subscribe params = %q, want T.NVDA", frames[1].Params)
	}

	got := c.Subscribed(model.ChannelTrades)
	if len(got) != 2 || got[0] != "MSFT" || got[1] != "NVDA" {
		t.Errorf("Subscribed = %v, want [MSFT NVDA]", got)
	}
}

func TestReplace_Idempotent(t *testing.T) {
	c := newTestClient(t)

	c.Replace([]string{"AAPL", "MSFT"}, model.ChannelTrades)
	if frames := drainFrames(t, c); len(frames) != 1 {
		t.Fatalf("first replace emitted %d frames, want 1", len(frames))
	}

	c.Replace([]string{"MSFT", "AAPL"}, model.ChannelTrades)
	if frames := drainFrames(t, c); len(frames) != 0 {
		t.Errorf("identical replace emitted %d frames, want 0", len(frames))
	}
}

func TestReplace_EmptySet(t *testing.T) {
	c := newTestClient(t)
	c.Subscribe([]string{"AAPL"}, model.ChannelTrades)
	drainFrames(t, c)

	c.Replace(nil, model.ChannelTrades)
	frames := drainFrames(t, c)
	if len(frames) != 1 || frames[0].Action != "unsubscribe" || frames[0].Params != "T.AAPL" {
		t.Errorf("frames = %+v, want one unsubscribe T.AAPL", frames)
	}
	if got := c.Subscribed(model.ChannelTrades); len(got) != 0 {
		t.Errorf("Subscribed = %v, want empty", got)
	}
}

func TestSubscribe_NormalizesAndFiltersSymbols(t *testing.T) {
	c := newTestClient(t)

	c.Subscribe([]string{" aapl ", "", "bad symbol!", "brk.a"}, model.ChannelTrades)
	frames := drainFrames(t, c)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Params != "T.AAPL,T.BRK.A" {
		t.Errorf("params = %q, want T.AAPL,T.BRK.A", frames[0].Params)
	}
}

func TestDispatch_ResubscribesOnAuthSuccess(t *testing.T) {
	c := newTestClient(t)
	c.Subscribe([]string{"AAPL", "MSFT"}, model.ChannelTrades)
	c.Subscribe([]string{"AAPL"}, model.ChannelQuotes)
	drainFrames(t, c)

	// Simulates the status frame delivered after (re)connect + auth.
	c.dispatch([]byte(`[{"ev":"status","status":"auth_success","message":"authenticated"}]`))

	if !c.IsAuthenticated() {
		t.Error("IsAuthenticated = false after auth_success")
	}

	frames := drainFrames(t, c)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2 (one per channel)", len(frames))
	}

	byParams := make(map[string]bool)
	for _, f := range frames {
		if f.Action != "subscribe" {
			t.Errorf("action = %q, want subscribe", f.Action)
		}
		byParams[f.Params] = true
	}
	if !byParams["T.AAPL,T.MSFT"] || !byParams["Q.AAPL"] {
		t.Errorf("re-subscribe frames = %v, want T.AAPL,T.MSFT and Q.AAPL", byParams)
	}
}

func TestDispatch_IgnoresNonAuthStatus(t *testing.T) {
	c := newTestClient(t)
	c.Subscribe([]string{"AAPL"}, model.ChannelTrades)
	drainFrames(t, c)

	c.dispatch([]byte(`{"ev":"status","status":"connected","message":"Connected Successfully"}`))
	if c.IsAuthenticated() {
		t.Error("IsAuthenticated = true for a non-auth status")
	}
	if frames := drainFrames(t, c); len(frames) != 0 {
		t.Errorf("non-auth status emitted %d frames, want 0", len(frames))
	}
}

func TestDispatch_RoutesByTagWithWildcard(t *testing.T) {
	c := newTestClient(t)

	var order []string
	c.RegisterHandler("T", func(json.RawMessage) { order = append(order, "T") })
	c.RegisterHandler(WildcardTag, func(json.RawMessage) { order = append(order, "*") })

	c.dispatch([]byte(`[{"ev":"T","sym":"AAPL","p":1.0,"s":1,"t":1},{"ev":"Q","sym":"AAPL","bp":1,"ap":2,"t":1}]`))

	// T gets specific then wildcard; Q only wildcard; unknown tags ignored.
	want := []string{"T", "*", "*"}
	if len(order) != len(want) {
		t.Fatalf("handler invocations = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestDispatch_HandlerPanicIsolated(t *testing.T) {
	c := newTestClient(t)

	var after int
	c.RegisterHandler("T", func(json.RawMessage) { panic("boom") })
	c.RegisterHandler("T", func(json.RawMessage) { after++ })

	c.dispatch([]byte(`{"ev":"T","sym":"AAPL"}`))
	if after != 1 {
		t.Errorf("second handler ran %d times, want 1", after)
	}
}

func TestDispatch_MalformedFrameSkipped(t *testing.T) {
	c := newTestClient(t)

	var n int
	c.RegisterHandler(WildcardTag, func(json.RawMessage) { n++ })

	c.dispatch([]byte(`{not json`))
	c.dispatch([]byte(`[{"ev":"T"}, {broken]`))
	if n != 0 {
		t.Errorf("handlers ran %d times on malformed input, want 0", n)
	}

	c.dispatch([]byte(`  {"ev":"T","sym":"AAPL"}  `))
	if n != 1 {
		t.Errorf("handlers ran %d times, want 1", n)
	}
}

func TestEnqueue_DropsWhenQueueFull(t *testing.T) {
	cfg := ClientConfig{URL: "wss://example.invalid", SendQueueSize: 2}
	c := NewClient(cfg, nil)

	c.Subscribe([]string{"A1"}, model.ChannelTrades)
	c.Subscribe([]string{"A2"}, model.ChannelTrades)
	c.Subscribe([]string{"A3"}, model.ChannelTrades) // queue full, dropped

	if got := c.DroppedOutbound(); got != 1 {
		t.Errorf("DroppedOutbound = %d, want 1", got)
	}

	// The subscription set still reflects all three; the frame loss is a
	// transport concern repaired by the next re-auth resubscribe.
	if got := c.Subscribed(model.ChannelTrades); len(got) != 3 {
		t.Errorf("Subscribed = %v, want 3 symbols", got)
	}
}
