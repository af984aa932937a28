package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message types written to websocket clients.
const (
	MessageEvent = "EVENT"
	MessageStale = "STALE"
)

// StreamMessage is the envelope written to websocket clients.
type StreamMessage struct {
	Type  string `json:"type"`
	Event *Event `json:"event,omitempty"`
}

// clientCommand is what clients may send; "resync" acknowledges a STALE message.
type clientCommand struct {
	Type string `json:"type"`
}

// Streamer upgrades HTTP requests to websocket change streams.
type Streamer struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewStreamer builds a streamer. allowedOrigins empty accepts any origin.
func NewStreamer(hub *Hub, allowedOrigins []string, logger *zap.Logger) *Streamer {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Streamer{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Serve upgrades the connection and streams events matching filter until the client leaves.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, filter Filter) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close() //nolint:errcheck

	sub := s.hub.Subscribe(filter)
	defer sub.Close()

	resync := make(chan struct{}, 1)
	done := make(chan struct{})
	go s.readLoop(conn, resync, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-resync:
			sub.Resync()
		case <-sub.StaleSignal():
			if err := s.write(conn, StreamMessage{Type: MessageStale}); err != nil {
				return
			}
		case e := <-sub.Events():
			if sub.Stale() {
				continue
			}
			event := e
			if err := s.write(conn, StreamMessage{Type: MessageEvent, Event: &event}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Streamer) readLoop(conn *websocket.Conn, resync chan<- struct{}, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd clientCommand
		if json.Unmarshal(data, &cmd) == nil && cmd.Type == "resync" {
			select {
			case resync <- struct{}{}:
			default:
			}
		}
	}
}

func (s *Streamer) write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
