package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SignalSource delivers published signals. store/redis.Bus implements it.
type SignalSource interface {
	Subscribe(ctx context.Context, fn func(symbol string, payload []byte)) error
}

// Envelope is what websocket clients receive for each signal.
type Envelope struct {
	Type   string          `json:"type"`
	Seq    int64           `json:"seq"`
	Symbol string          `json:"symbol"`
	TS     time.Time       `json:"ts"`
	Data   json.RawMessage `json:"data"`
	Replay bool            `json:"replay,omitempty"`
}

// Hub fans signals out to websocket clients and keeps a replay buffer.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64
	replay  *ReplayBuffer
	now     func() time.Time
}

func NewHub(replaySize int) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		replay:  NewReplayBuffer(replaySize),
		now:     time.Now,
	}
}

// Run relays src into the hub until ctx ends. A dropped subscription is
// retried with a fixed backoff.
func (h *Hub) Run(ctx context.Context, src SignalSource) {
	for {
		err := src.Subscribe(ctx, h.Broadcast)
		if ctx.Err() != nil {
			return
		}
		log.Printf("[dashboard] signal subscription ended: %v (retrying)", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

// Broadcast wraps payload in an Envelope, buffers it for replay and queues
// it on every client. Slow clients drop messages rather than block.
func (h *Hub) Broadcast(symbol string, payload []byte) {
	if !json.Valid(payload) {
		log.Printf("[dashboard] dropping non-JSON signal for %s", symbol)
		return
	}

	h.mu.Lock()
	h.seq++
	env := Envelope{Type: "signal", Seq: h.seq, Symbol: symbol, TS: h.now().UTC(), Data: payload}
	data, _ := json.Marshal(env)
	h.replay.Push(env.Seq, data)
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
	h.mu.Unlock()
}

// Seq returns the sequence number of the last broadcast signal.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// Attach registers conn and replays buffered signals newer than lastSeq.
// lastSeq < 0 skips the replay.
func (h *Hub) Attach(conn *websocket.Conn, lastSeq int64) {
	c := &Client{conn: conn, send: make(chan []byte, 256), hub: h}

	h.mu.Lock()
	if lastSeq >= 0 {
		for _, msg := range h.replay.Since(lastSeq) {
			select {
			case c.send <- markReplay(msg):
			default:
			}
		}
	}
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[dashboard] ws client connected (%d total)", count)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func markReplay(msg []byte) []byte {
	var env Envelope
	if json.Unmarshal(msg, &env) != nil {
		return msg
	}
	env.Replay = true
	out, _ := json.Marshal(env)
	return out
}
