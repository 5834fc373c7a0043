package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voicewire/voicewire/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

// State is the transport connection state.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Callbacks receive classified inbound traffic. OnEvent gets every decoded
// text frame, including KindUnknown; OnAudio gets every binary frame as an
// opaque audio chunk. OnClose fires once when the read loop ends.
type Callbacks struct {
	OnEvent func(ev ServerEvent)
	OnAudio func(chunk []byte)
	OnClose func(err error)
}

// WriteData is one outbound websocket frame.
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage.
	Type    int
	Payload []byte
}

// Transport owns one duplex event channel. Multiple independent instances
// may exist concurrently (primary session channel plus an optional
// call-relay channel); each runs the same state machine.
type Transport struct {
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	state     atomic.Int32
	callbacks Callbacks
	logger    *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens a websocket to the given URL, optionally attaching a bearer
// token, and starts the read/write pumps. The transport is Open on return.
func Dial(ctx context.Context, url, token string, cb Callbacks, logger *zap.Logger) (*Transport, error) {
	t := &Transport{
		send:      make(chan WriteData, 256),
		callbacks: cb,
		logger:    logger,
		done:      make(chan struct{}),
	}
	t.state.Store(int32(StateConnecting))

	var header http.Header
	if token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + token}}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		t.state.Store(int32(StateClosed))
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	t.conn = conn
	t.state.Store(int32(StateOpen))

	go t.writePump()
	go t.readPump()

	return t, nil
}

// State returns the current connection state.
func (t *Transport) State() State {
	return State(t.state.Load())
}

// SubmitText sends a user utterance. No-op unless the channel is open.
func (t *Transport) SubmitText(text string) {
	payload, _ := json.Marshal(map[string]string{"text": text})
	t.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

// SubmitInterrupt sends the barge-in signal. No-op unless the channel is
// open. Rate limiting is the caller's concern.
func (t *Transport) SubmitInterrupt() {
	payload, _ := json.Marshal(map[string]string{"type": "interrupt"})
	t.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

func (t *Transport) enqueue(data WriteData) {
	if t.State() != StateOpen {
		return
	}
	select {
	case t.send <- data:
	case <-t.done:
	}
}

// Close shuts the channel down. Idempotent.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		t.state.Store(int32(StateClosing))
		close(t.done)
		if t.conn != nil {
			t.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			t.conn.Close()
		}
		t.state.Store(int32(StateClosed))
	})
}

// readPump pumps messages from the websocket connection to the callbacks.
func (t *Transport) readPump() {
	defer t.Close()

	t.conn.SetReadLimit(maxMessageSize)
	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	var closeErr error
	for {
		messageType, message, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				t.logger.Error("WebSocket error", zap.Error(err))
				closeErr = err
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			metrics.FramesText.Inc()
			ev := DecodeServerEvent(message)
			if ev.Kind == KindUnknown {
				metrics.FramesDiscarded.Inc()
				t.logger.Warn("Discarding unrecognized frame",
					zap.ByteString("frame", message))
			}
			if t.callbacks.OnEvent != nil {
				t.callbacks.OnEvent(ev)
			}
		case websocket.BinaryMessage:
			metrics.FramesBinary.Inc()
			if t.callbacks.OnAudio != nil {
				t.callbacks.OnAudio(message)
			}
		default:
			t.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}

	if t.callbacks.OnClose != nil {
		t.callbacks.OnClose(closeErr)
	}
}

// writePump pumps messages from the send channel to the websocket
// connection, keeping the connection alive with periodic pings.
func (t *Transport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.Close()
	}()

	for {
		select {
		case <-t.done:
			return

		case message := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(message.Type, message.Payload); err != nil {
				t.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
