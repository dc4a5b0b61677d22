package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout  = 5 * time.Second
	pongTimeout   = 60 * time.Second
	pingInterval  = 30 * time.Second
	sendQueueSize = 64
	maxControlMsg = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Operator devices connect from arbitrary LAN addresses.
	CheckOrigin: func(*http.Request) bool { return true },
}

// controlMessage is what clients send upstream: view switches only.
type controlMessage struct {
	Action        string `json:"action"`
	TimingPointID string `json:"timingPointId"`
}

// Session is one long-lived client connection. Outbound events pass
// through a buffered queue so a stalled socket never blocks a mutation.
type Session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newSession(hub *Hub, conn *websocket.Conn) *Session {
	return &Session{hub: hub, conn: conn, send: make(chan []byte, sendQueueSize)}
}

// ServeWS upgrades the request and runs the session until disconnect.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: upgrade failed: %v", err)
		return
	}
	s := newSession(hub, conn)
	hub.register(s)
	go s.writePump()
	go s.readPump()
}

// readPump consumes subscribe/unsubscribe messages until the connection
// dies, then cleans up the session.
func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()
	s.conn.SetReadLimit(maxControlMsg)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Action {
		case "subscribe":
			s.hub.Subscribe(s, msg.TimingPointID)
		case "unsubscribe":
			s.hub.Unsubscribe(s, msg.TimingPointID)
		}
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. It exits when the hub closes the queue or a write fails.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-s.send:
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeTimeout))
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.hub.Unregister(s)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.hub.Unregister(s)
				return
			}
		}
	}
}
