package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reflex-trading/reflex-data/internal/model"
)

const reconnectBaseDelay = time.Second

// Client is a single authenticated WebSocket connection to the upstream
// feed with dynamic per-channel subscription management.
type Client struct {
	cfg    ClientConfig
	logger *slog.Logger

	// Subscription sets, one per channel. Guarded by subMu; mutations and
	// the frames they emit are atomic with respect to each other.
	subMu sync.Mutex
	subs  map[model.Channel]map[string]struct{}

	handlerMu sync.RWMutex
	handlers  map[string][]EventHandler

	sendq chan []byte

	connMu    sync.RWMutex
	conn      *websocket.Conn
	connected bool

	// authed flags that the current connection saw an auth-success status.
	authed atomic.Bool

	done    chan struct{}
	stopped atomic.Bool
	wg      sync.WaitGroup

	// Stats
	droppedOut atomic.Int64
}

// NewClient creates a client. Start must be called before events flow.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:      cfg,
		logger:   logger.With("client", cfg.Name),
		subs:     make(map[model.Channel]map[string]struct{}),
		handlers: make(map[string][]EventHandler),
		sendq:    make(chan []byte, cfg.SendQueueSize),
		done:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for an event tag ("T", "Q", "status",
// or WildcardTag). Handlers registered for the same tag run in registration
// order.
func (c *Client) RegisterHandler(tag string, fn EventHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handlers[tag] = append(c.handlers[tag], fn)
}

// Start launches the runner and sender goroutines. It returns immediately;
// connection failures are retried in the background.
func (c *Client) Start(ctx context.Context) {
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.runLoop(ctx)
	}()
	go func() {
		defer c.wg.Done()
		c.sendLoop()
	}()
}

// Stop closes the socket and joins the background goroutines, waiting at
// most timeout.
func (c *Client) Stop(timeout time.Duration) {
	if !c.stopped.CompareAndSwap(false, true) {
		return
	}
	close(c.done)
	c.closeConn()

	joined := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(timeout):
		c.logger.Warn("stop timeout, goroutines still running")
	}
}

// IsConnected reports whether the socket is currently open.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// IsAuthenticated reports whether the current connection has authenticated.
func (c *Client) IsAuthenticated() bool {
	return c.authed.Load()
}

// -----------------------------------------------------------------------------
// Subscription management
// -----------------------------------------------------------------------------

// Subscribe adds symbols to a channel's set and emits one subscribe frame
// containing only the newly added symbols.
func (c *Client) Subscribe(symbols []string, ch model.Channel) {
	syms := normalizeAll(symbols)
	if len(syms) == 0 {
		return
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	set := c.ensureSetLocked(ch)
	var added []string
	for _, s := range syms {
		if _, ok := set[s]; !ok {
			set[s] = struct{}{}
			added = append(added, s)
		}
	}
	if len(added) > 0 {
		sort.Strings(added)
		c.enqueueAction("subscribe", added, ch)
		c.logger.Info("subscribe", "channel", ch, "added", len(added))
	}
}

// Unsubscribe removes symbols from a channel's set and emits one
// unsubscribe frame containing only the symbols actually removed.
func (c *Client) Unsubscribe(symbols []string, ch model.Channel) {
	syms := normalizeAll(symbols)
	if len(syms) == 0 {
		return
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	set := c.ensureSetLocked(ch)
	var removed []string
	for _, s := range syms {
		if _, ok := set[s]; ok {
			delete(set, s)
			removed = append(removed, s)
		}
	}
	if len(removed) > 0 {
		sort.Strings(removed)
		c.enqueueAction("unsubscribe", removed, ch)
		c.logger.Info("unsubscribe", "channel", ch, "removed", len(removed))
	}
}

// Replace installs the given set as the channel's subscription set,
// emitting an unsubscribe for the symbols leaving and a subscribe for the
// symbols entering. Calling Replace twice with the same set emits nothing
// the second time.
func (c *Client) Replace(symbols []string, ch model.Channel) {
	target := make(map[string]struct{})
	for _, s := range normalizeAll(symbols) {
		target[s] = struct{}{}
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	current := c.ensureSetLocked(ch)

	var removed, added []string
	for s := range current {
		if _, ok := target[s]; !ok {
			removed = append(removed, s)
		}
	}
	for s := range target {
		if _, ok := current[s]; !ok {
			added = append(added, s)
		}
	}

	sort.Strings(removed)
	sort.Strings(added)
	if len(removed) > 0 {
		c.enqueueAction("unsubscribe", removed, ch)
	}
	if len(added) > 0 {
		c.enqueueAction("subscribe", added, ch)
	}
	c.subs[ch] = target

	if len(removed) > 0 || len(added) > 0 {
		c.logger.Info("replace", "channel", ch,
			"added", len(added), "removed", len(removed), "total", len(target))
	}
}

// Subscribed returns a sorted copy of the channel's current set.
func (c *Client) Subscribed(ch model.Channel) []string {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	set := c.subs[ch]
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SubscribedAll returns sorted copies of every channel's set.
func (c *Client) SubscribedAll() map[model.Channel][]string {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	out := make(map[model.Channel][]string, len(c.subs))
	for ch, set := range c.subs {
		syms := make([]string, 0, len(set))
		for s := range set {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		out[ch] = syms
	}
	return out
}

func (c *Client) ensureSetLocked(ch model.Channel) map[string]struct{} {
	set, ok := c.subs[ch]
	if !ok {
		set = make(map[string]struct{})
		c.subs[ch] = set
	}
	return set
}

func normalizeAll(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		s, err := model.NormalizeSymbol(raw)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// resubscribeAll re-emits every held subscription. Called after a
// successful (re)authentication.
func (c *Client) resubscribeAll() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for ch, set := range c.subs {
		if len(set) == 0 {
			continue
		}
		syms := make([]string, 0, len(set))
		for s := range set {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		c.enqueueAction("subscribe", syms, ch)
		c.logger.Info("re-subscribed", "channel", ch, "symbols", len(syms))
	}
}

// -----------------------------------------------------------------------------
// Outbound path
// -----------------------------------------------------------------------------

// enqueueAction encodes "<channel>.<symbol>" params comma-joined into a
// single frame and enqueues it.
func (c *Client) enqueueAction(action string, symbols []string, ch model.Channel) {
	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = string(ch) + "." + s
	}
	c.enqueueJSON(actionMsg{Action: action, Params: strings.Join(parts, ",")})
}

func (c *Client) enqueueJSON(msg actionMsg) {
	raw, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal outbound frame", "error", err)
		return
	}
	select {
	case c.sendq <- raw:
	default:
		c.droppedOut.Add(1)
		c.logger.Error("send queue full, dropping frame", "action", msg.Action)
	}
}

// sendLoop drains the send queue. While disconnected the head frame is
// held, preserving order across reconnects.
func (c *Client) sendLoop() {
	var pending []byte
	for {
		if pending == nil {
			select {
			case <-c.done:
				return
			case pending = <-c.sendq:
			}
		}

		if !c.IsConnected() {
			select {
			case <-c.done:
				return
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		if err := c.writeFrame(pending); err != nil {
			c.logger.Debug("write failed, retrying frame", "error", err)
			select {
			case <-c.done:
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		pending = nil
	}
}

func (c *Client) writeFrame(data []byte) error {
	c.connMu.RLock()
	conn := c.conn
	connected := c.connected
	c.connMu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// -----------------------------------------------------------------------------
// Connection lifecycle
// -----------------------------------------------------------------------------

// runLoop owns the connect / read / backoff cycle. Backoff doubles from
// 1 s up to MaxBackoff with additive jitter in [0, 0.2*delay), and resets
// only after a connection authenticates successfully.
func (c *Client) runLoop(ctx context.Context) {
	backoff := reconnectBaseDelay
	attempt := 0

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		attempt++
		c.logger.Info("connecting", "url", c.cfg.URL, "attempt", attempt)

		dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			c.logger.Warn("dial failed", "error", err)
		} else {
			c.setConn(conn)
			c.authed.Store(false)

			// First outbound frame after connect is always auth.
			c.enqueueJSON(actionMsg{Action: "auth", Params: c.cfg.APIKey})

			c.readUntilClosed(conn)
			c.closeConn()

			if c.authed.Load() {
				backoff = reconnectBaseDelay
				attempt = 0
			}
			c.authed.Store(false)
		}

		if c.stopped.Load() || !c.cfg.Reconnect {
			return
		}

		delay := backoff + time.Duration(rand.Float64()*0.2*float64(backoff))
		c.logger.Warn("disconnected, reconnecting", "delay", delay)
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
}

// readUntilClosed pumps inbound frames through dispatch until the
// connection dies. A per-connection heartbeat goroutine sends pings and
// force-closes the socket when pongs stop arriving.
func (c *Client) readUntilClosed(conn *websocket.Conn) {
	var lastPong atomic.Int64
	lastPong.Store(time.Now().UnixNano())
	conn.SetPongHandler(func(string) error {
		lastPong.Store(time.Now().UnixNano())
		return nil
	})

	hbDone := make(chan struct{})
	defer close(hbDone)
	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbDone:
				return
			case <-c.done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(c.cfg.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					c.logger.Debug("ping failed", "error", err)
				}
				stale := time.Since(time.Unix(0, lastPong.Load()))
				if stale > c.cfg.PingInterval+c.cfg.PongTimeout {
					c.logger.Warn("connection stale, forcing close", "stale", stale)
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("read error", "error", err)
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connected = true
	c.connMu.Unlock()
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.connMu.Unlock()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}
}

// -----------------------------------------------------------------------------
// Inbound dispatch
// -----------------------------------------------------------------------------

// dispatch parses a frame (single event or array) and routes each event to
// the tag-specific handlers, then the wildcard handlers. Unknown tags are
// ignored; status events are handled for authentication tracking.
func (c *Client) dispatch(data []byte) {
	events, err := splitEvents(data)
	if err != nil {
		c.logger.Debug("unparseable frame", "error", err)
		return
	}

	for _, raw := range events {
		var env eventEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Debug("unparseable event", "error", err)
			continue
		}

		if env.Ev == "" || env.Ev == "status" {
			c.handleStatus(env)
			continue
		}

		c.handlerMu.RLock()
		specific := c.handlers[env.Ev]
		wildcard := c.handlers[WildcardTag]
		c.handlerMu.RUnlock()

		for _, fn := range specific {
			c.invoke(env.Ev, fn, raw)
		}
		for _, fn := range wildcard {
			c.invoke(env.Ev, fn, raw)
		}
	}
}

func (c *Client) invoke(tag string, fn EventHandler, raw json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked", "ev", tag, "panic", r)
		}
	}()
	fn(raw)
}

// handleStatus tracks authentication. The success check is a
// case-insensitive substring match, matching upstream's loose wording.
func (c *Client) handleStatus(env eventEnvelope) {
	status := strings.ToLower(env.Status)
	message := strings.ToLower(env.Message)
	if strings.Contains(status, "success") && strings.Contains(message, "authenticated") {
		c.logger.Info("authenticated")
		c.authed.Store(true)
		c.resubscribeAll()
	}
}

// splitEvents accepts either a single JSON event or a JSON array of events.
func splitEvents(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []json.RawMessage
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, err
		}
		return events, nil
	}

	var single json.RawMessage
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []json.RawMessage{single}, nil
}

// DroppedOutbound returns the number of frames dropped because the send
// queue was full.
func (c *Client) DroppedOutbound() int64 {
	return c.droppedOut.Load()
}
