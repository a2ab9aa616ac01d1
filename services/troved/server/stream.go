package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"solusd/core/types"
)

const (
	wsWriteTimeout   = 10 * time.Second
	subscriberBuffer = 64
)

// streamMessage is one frame on the receipt stream.
type streamMessage struct {
	Type    string         `json:"type"`
	Receipt *types.Receipt `json:"receipt,omitempty"`
}

// Hub fans committed receipts out to stream subscribers. Slow subscribers
// lose messages rather than block operations.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan *types.Receipt
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan *types.Receipt)}
}

// Subscribe registers a subscriber. The returned cancel func must be called
// to release it.
func (h *Hub) Subscribe() (<-chan *types.Receipt, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan *types.Receipt, subscriberBuffer)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
}

// Publish delivers receipt to every subscriber with buffer space.
func (h *Hub) Publish(receipt *types.Receipt) {
	if h == nil || receipt == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- receipt:
		default:
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	updates, cancel := s.hub.Subscribe()
	defer cancel()

	ctx := conn.CloseRead(r.Context())
	if err := writeStreamMessage(ctx, conn, streamMessage{Type: "subscribed"}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case receipt, ok := <-updates:
			if !ok {
				return
			}
			if err := writeStreamMessage(ctx, conn, streamMessage{Type: "receipt", Receipt: receipt}); err != nil {
				if websocket.CloseStatus(err) == -1 {
					_ = conn.Close(websocket.StatusInternalError, "stream error")
				}
				return
			}
		}
	}
}

func writeStreamMessage(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
