package confirmation

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// outboundRequest is the JSON frame pushed to every connected operator
// client when a confirmation is opened.
type outboundRequest struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Context   map[string]string `json:"context"`
	Options   []Option          `json:"options"`
	TimeoutMS int64             `json:"timeout_ms"`
}

// inboundDecision is the JSON frame an operator client sends back.
type inboundDecision struct {
	ConfirmationID string `json:"confirmation_id"`
	Action         Action `json:"action"`
	UserID         int64  `json:"user_id"`
}

// WebSocketChannel is the live confirmation channel for an operator
// dashboard: spec.md §4.O calls for a websocket feed alongside Telegram
// so a human watching the dashboard can answer without reaching for a
// phone. Server-role counterpart to the teacher's client-role
// nhooyr.io/websocket usage in internal/clients/tradernet's
// reconnecting dialer — this side accepts connections rather than
// dialing one, and fans a single outbound frame out to every connected
// client instead of consuming an inbound feed.
type WebSocketChannel struct {
	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	waiters map[string]chan Result
	log     zerolog.Logger
}

// NewWebSocketChannel returns an empty hub; register it with a chi
// router via ServeHTTP and with a Bus via its Channel interface.
func NewWebSocketChannel(log zerolog.Logger) *WebSocketChannel {
	return &WebSocketChannel{
		conns:   make(map[*websocket.Conn]struct{}),
		waiters: make(map[string]chan Result),
		log:     log.With().Str("component", "confirmation.websocket").Logger(),
	}
}

func (w *WebSocketChannel) Name() string { return "websocket" }

// ServeHTTP upgrades the connection and keeps it registered until the
// client disconnects, relaying any decision frames it sends to the
// matching waiter.
func (w *WebSocketChannel) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(rw, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		w.log.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	w.mu.Lock()
	w.conns[conn] = struct{}{}
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		delete(w.conns, conn)
		w.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		var decision inboundDecision
		if err := wsjson.Read(ctx, conn, &decision); err != nil {
			return
		}
		w.mu.Lock()
		waiter, ok := w.waiters[decision.ConfirmationID]
		w.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case waiter <- Result{Action: decision.Action, Source: w.Name(), UserID: decision.UserID}:
		default:
		}
	}
}

// Publish broadcasts req to every connected client and returns a
// channel that yields the first decision referencing req.ID.
func (w *WebSocketChannel) Publish(ctx context.Context, req *Request) (<-chan Result, error) {
	result := make(chan Result, 1)

	w.mu.Lock()
	w.waiters[req.ID] = result
	conns := make([]*websocket.Conn, 0, len(w.conns))
	for c := range w.conns {
		conns = append(conns, c)
	}
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		delete(w.waiters, req.ID)
		w.mu.Unlock()
	}()

	frame := outboundRequest{
		ID:        req.ID,
		Kind:      req.Kind,
		Context:   req.Context,
		Options:   req.Options,
		TimeoutMS: req.Timeout.Milliseconds(),
	}
	for _, c := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := wsjson.Write(writeCtx, c, frame)
		cancel()
		if err != nil {
			w.log.Warn().Err(err).Msg("failed to push confirmation to client")
		}
	}

	return result, nil
}
