package transport

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// chatPath is the backend's single chat channel.
	chatPath = "/ws/chat"

	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Delay before retrying after a closed connection. Fixed, no backoff
	// growth, no retry cap.
	reconnectDelay = 5 * time.Second

	// Maximum message size allowed from the backend. Replies may carry
	// base64 speech audio.
	maxMessageSize = 4 * 1024 * 1024
)

// Handler receives inbound envelopes in network order.
type Handler func(Envelope)

// Channel owns the one persistent WebSocket connection to the backend.
// Exactly one inbound handler is registered at a time; SetOnMessage replaces
// it. A closed connection schedules a single reconnect per close.
type Channel struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	logger *zap.Logger

	// reconnectDelay is fixed in production; tests shorten it.
	retryDelay time.Duration

	// writeMu serializes writers; the websocket connection allows at most
	// one concurrent writer.
	writeMu sync.Mutex

	mu               sync.Mutex
	conn             *websocket.Conn
	connecting       bool
	closed           bool
	reconnectPending bool
	handler          Handler
	status           Status
	onStatus         func(Status)
}

// NewChannel creates a channel for the backend at base (http or https URL).
// The connection is not opened until Connect.
func NewChannel(base string, header http.Header, logger *zap.Logger) (*Channel, error) {
	endpoint, err := chatEndpoint(base)
	if err != nil {
		return nil, err
	}
	return &Channel{
		url:        endpoint,
		header:     header,
		dialer:     websocket.DefaultDialer,
		logger:     logger,
		retryDelay: reconnectDelay,
		status:     StatusLoading,
	}, nil
}

// chatEndpoint derives the socket URL from the backend's base URL, mapping
// the secure scheme to the secure socket scheme.
func chatEndpoint(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported backend scheme: %s", u.Scheme)
	}
	u.Path = chatPath
	return u.String(), nil
}

// SetOnMessage registers the single inbound handler, replacing any previous
// one.
func (c *Channel) SetOnMessage(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// SetOnStatus registers a status change listener.
func (c *Channel) SetOnStatus(f func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = f
}

// Status returns the current channel status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetStatus updates the status surfaced to clients. The channel itself only
// asserts online; generating/loading/error come from the conversation and
// model-load flows.
func (c *Channel) SetStatus(s Status) {
	c.mu.Lock()
	c.status = s
	listener := c.onStatus
	c.mu.Unlock()
	if listener != nil {
		listener(s)
	}
}

// Connect opens the socket. Idempotent: a no-op while the channel is open or
// a dial is in flight, so a redundant reconnect attempt is harmless.
func (c *Channel) Connect() error {
	c.mu.Lock()
	if c.closed || c.conn != nil || c.connecting {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	c.mu.Unlock()

	conn, resp, err := c.dialer.Dial(c.url, c.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	c.connecting = false
	if err != nil {
		c.scheduleReconnect()
		c.mu.Unlock()
		c.logger.Warn("Failed to connect to chat channel",
			zap.String("url", c.url),
			zap.Error(err))
		return err
	}
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	conn.SetReadLimit(maxMessageSize)
	c.logger.Info("Connected to chat channel", zap.String("url", c.url))
	c.SetStatus(StatusOnline)

	go c.readPump(conn)
	return nil
}

// Send serializes {text, speak_response} onto the channel. Returns false
// without error when the channel is not open; the caller surfaces that as a
// user-visible notice.
func (c *Channel) Send(text string, speakResponse bool) bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.logger.Warn("Cannot send message: chat channel is not open")
		return false
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(ChatRequest{Text: text, SpeakResponse: speakResponse}); err != nil {
		c.logger.Error("Failed to write chat message", zap.Error(err))
		return false
	}
	return true
}

// readPump delivers inbound messages to the registered handler in the order
// received, then arranges the reconnect when the connection drops.
func (c *Channel) readPump(conn *websocket.Conn) {
	defer func() {
		conn.Close()

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		closed := c.closed
		c.mu.Unlock()

		if !closed {
			c.logger.Info("Chat channel closed, scheduling reconnect")
			c.mu.Lock()
			c.scheduleReconnect()
			c.mu.Unlock()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				// Transient read errors are logged but never flip the
				// status indicator.
				c.logger.Error("Chat channel read error", zap.Error(err))
			}
			return
		}

		env, err := ParseEnvelope(data)
		if err != nil {
			c.logger.Error("Failed to parse inbound message", zap.Error(err))
			continue
		}

		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(env)
		}
	}
}

// scheduleReconnect arms the single retry timer. Exactly one attempt is
// pending per close regardless of how many close events fired. Caller holds
// c.mu.
func (c *Channel) scheduleReconnect() {
	if c.reconnectPending || c.closed {
		return
	}
	c.reconnectPending = true
	time.AfterFunc(c.retryDelay, func() {
		c.mu.Lock()
		c.reconnectPending = false
		c.mu.Unlock()
		c.Connect()
	})
}

// Close tears the channel down for good. The handler is detached first so
// the close does not trigger a reconnect.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.handler = nil
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		return conn.Close()
	}
	return nil
}
