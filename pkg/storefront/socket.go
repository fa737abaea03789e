package storefront

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Reconnect policy defaults.
const (
	DefaultBaseDelay    = time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultMaxAttempts  = 10
	DefaultPingInterval = 30 * time.Second
)

// ErrReconnectExhausted is delivered on Errors once the socket gives up.
var ErrReconnectExhausted = errors.New("storefront: websocket reconnect attempts exhausted")

// Backoff is the delay before reconnect attempt n (0-based) under the default policy:
// 1s, 2s, 4s ... capped at 30s.
func Backoff(attempt int) time.Duration {
	return backoff(DefaultBaseDelay, DefaultMaxDelay, attempt)
}

func backoff(base, limit time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// Socket keeps one WebSocket connection to the server open. Unclean closes are
// retried with exponential backoff; a normal or going-away close ends it.
type Socket struct {
	url    string
	header http.Header
	dialer *websocket.Dialer

	baseDelay    time.Duration
	maxDelay     time.Duration
	maxAttempts  int
	pingInterval time.Duration

	messages chan []byte
	errs     chan error

	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool
	writeMu sync.Mutex
}

type SocketOption func(*Socket)

func WithBackoff(base, limit time.Duration) SocketOption {
	return func(s *Socket) { s.baseDelay, s.maxDelay = base, limit }
}

func WithMaxAttempts(n int) SocketOption {
	return func(s *Socket) { s.maxAttempts = n }
}

func WithPingInterval(d time.Duration) SocketOption {
	return func(s *Socket) { s.pingInterval = d }
}

// WithHeader sets handshake headers, e.g. the session Cookie or Authorization.
func WithHeader(h http.Header) SocketOption {
	return func(s *Socket) { s.header = h }
}

func NewSocket(url string, opts ...SocketOption) *Socket {
	s := &Socket{
		url:          url,
		dialer:       websocket.DefaultDialer,
		baseDelay:    DefaultBaseDelay,
		maxDelay:     DefaultMaxDelay,
		maxAttempts:  DefaultMaxAttempts,
		pingInterval: DefaultPingInterval,
		messages:     make(chan []byte, 16),
		errs:         make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Messages delivers every text frame received from the server.
func (s *Socket) Messages() <-chan []byte { return s.messages }

// Errors receives ErrReconnectExhausted when the socket gives up.
func (s *Socket) Errors() <-chan error { return s.errs }

// Run connects and keeps the connection alive until ctx is done, the connection is
// closed cleanly, or the reconnect attempts run out.
func (s *Socket) Run(ctx context.Context) error {
	attempt := 0
	for {
		conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err == nil {
			attempt = 0
			if err = s.serve(ctx, conn); err == nil {
				return ctx.Err()
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.isClosing() {
			return nil
		}

		if attempt >= s.maxAttempts {
			log.WithError(err).Error("❌ WebSocket reconnect attempts exhausted")
			select {
			case s.errs <- ErrReconnectExhausted:
			default:
			}
			return ErrReconnectExhausted
		}
		delay := backoff(s.baseDelay, s.maxDelay, attempt)
		attempt++
		log.WithError(err).WithFields(log.Fields{"attempt": attempt, "delay": delay}).Warn("🔌 WebSocket disconnected, reconnecting")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// serve pumps one connection. It returns nil on a clean close.
func (s *Socket) serve(ctx context.Context, conn *websocket.Conn) error {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || s.isClosing() {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		select {
		case s.messages <- data:
		case <-ctx.Done():
			return nil
		}
	}
}

// keepAlive sends {"type":"ping"} on every tick and closes the connection when ctx ends.
func (s *Socket) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			s.writeClose(conn)
			conn.Close()
			return
		case <-ticker.C:
			if err := s.write(conn, map[string]string{"type": "ping"}); err != nil {
				return
			}
		}
	}
}

// Send writes v as JSON on the current connection.
func (s *Socket) Send(v interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("storefront: websocket not connected")
	}
	return s.write(conn, v)
}

// Close ends the session with a normal closure; Run then returns nil.
func (s *Socket) Close() error {
	s.mu.Lock()
	s.closing = true
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return s.writeClose(conn)
}

func (s *Socket) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Socket) write(conn *websocket.Conn, v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}

func (s *Socket) writeClose(conn *websocket.Conn) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
