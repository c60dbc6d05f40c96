package peer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20
)

// wsTransport speaks JSON text frames over a websocket with a read pump and a write pump.
type wsTransport struct {
	conn   *websocket.Conn
	send   chan []byte
	frames chan []byte
	done   chan struct{}
	once   sync.Once
	log    *slog.Logger
}

// DialWebSocket connects to a relay endpoint such as ws://host/ws?token=....
func DialWebSocket(ctx context.Context, url string, header http.Header, logger *slog.Logger) (Transport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWebSocketTransport(conn, logger), nil
}

// NewWebSocketTransport takes ownership of conn and starts its pumps.
func NewWebSocketTransport(conn *websocket.Conn, logger *slog.Logger) Transport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &wsTransport{
		conn:   conn,
		send:   make(chan []byte, 256),
		frames: make(chan []byte, 64),
		done:   make(chan struct{}),
		log:    logger,
	}
	go t.readPump()
	go t.writePump()
	return t
}

func (t *wsTransport) readPump() {
	defer func() {
		close(t.frames)
		t.Close()
	}()

	t.conn.SetReadLimit(maxMessageSize)
	_ = t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.log.Warn("websocket read failed", "error", err)
			}
			return
		}
		select {
		case t.frames <- message:
		case <-t.done:
			return
		}
	}
}

func (t *wsTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case message := <-t.send:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				t.log.Warn("websocket write failed", "error", err)
				t.Close()
				return
			}
		case <-ticker.C:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.Close()
				return
			}
		case <-t.done:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = t.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (t *wsTransport) Send(ctx context.Context, frame []byte) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	select {
	case t.send <- frame:
		return nil
	case <-t.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *wsTransport) Frames() <-chan []byte { return t.frames }

func (t *wsTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}
