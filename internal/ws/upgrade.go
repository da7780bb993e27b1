package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Pump copies messages from c to conn until the peer goes away or maxWait
// passes, in which case timeoutMsg is sent before closing. A zero maxWait
// waits forever. c must already be registered; Pump closes both c and conn.
func Pump(c *Client, conn *websocket.Conn, maxWait time.Duration, timeoutMsg []byte) {
	defer conn.Close()
	defer c.Close()
	go readPump(conn, c)
	writePump(c, conn, maxWait, timeoutMsg)
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn, maxWait time.Duration, timeoutMsg []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	var deadline <-chan time.Time
	if maxWait > 0 {
		timer := time.NewTimer(maxWait)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-deadline:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if timeoutMsg != nil {
				_ = conn.WriteMessage(websocket.TextMessage, timeoutMsg)
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "timeout"))
			return
		}
	}
}

// readPump drains control frames; the page never sends data.
func readPump(conn *websocket.Conn, c *Client) {
	defer c.Close()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
