package ws

import (
	"encoding/json"
	"sync"
)

// Client is one websocket watching the outcome of a checkout.
type Client struct {
	CheckoutID string
	Send       chan []byte
	Hub        *Hub // set by Register so Close() can unregister
	mu         sync.Mutex
	closed     bool
}

func NewClient(checkoutID string) *Client {
	return &Client{CheckoutID: checkoutID, Send: make(chan []byte, 8)}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
	close(c.Send)
}

// Hub fans callback outcomes out to the pages waiting on them.
type Hub struct {
	mu sync.RWMutex
	// checkout id -> clients (a payer can have the pending page open twice)
	byCheckout map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byCheckout: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	if h.byCheckout[c.CheckoutID] == nil {
		h.byCheckout[c.CheckoutID] = make(map[*Client]struct{})
	}
	h.byCheckout[c.CheckoutID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byCheckout[c.CheckoutID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byCheckout, c.CheckoutID)
		}
	}
}

// Publish sends payload to every client watching checkoutID. Slow clients
// drop the message rather than block the callback.
func (h *Hub) Publish(checkoutID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byCheckout[checkoutID] {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (h *Hub) ClientCount(checkoutID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byCheckout[checkoutID])
}
