package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"khushin_back_end/internal/metrics"
	"khushin_back_end/internal/middleware"
)

const (
	wsWriteWait    = 10 * time.Second
	wsMaxMessage   = 4096
	wsPolicyClosed = "message rate exceeded"
)

type wsMessage struct {
	Type string `json:"type"`
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			if u.Host == r.Host {
				return true
			}
			front, err := url.Parse(h.frontendURL)
			return err == nil && front.Host == u.Host
		},
	}
}

// WebSocket greets the client, answers {"type":"ping"} with {"type":"pong"} and, for
// signed-in users, pushes a cart_updated snapshot whenever their cart changes.
func (h *Handler) WebSocket(c *gin.Context) {
	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("❌ WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	metrics.WSConnected()
	defer metrics.WSDisconnected()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	userID, authed := middleware.UserID(c)
	var events <-chan string
	if authed && h.events != nil {
		events, err = h.events.Subscribe(ctx, userID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("⚠️  Cart sync unavailable")
			events = nil
		}
	}

	inbound := make(chan wsMessage)
	go h.readLoop(ctx, cancel, conn, inbound)

	if err := writeJSON(conn, gin.H{
		"type":          "connected",
		"message":       "Connected to Khushin",
		"authenticated": authed,
	}); err != nil {
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-inbound:
			if msg.Type == "ping" {
				if err := writeJSON(conn, gin.H{"type": "pong"}); err != nil {
					return
				}
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			cart, err := h.loadCart(c, userID)
			if err != nil {
				log.WithError(err).WithField("user_id", userID).Error("❌ Cart snapshot failed")
				continue
			}
			if err := writeJSON(conn, gin.H{
				"type":  "cart_updated",
				"event": ev,
				"items": cart.Items,
				"total": cart.Total,
				"count": cart.Count,
			}); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// readLoop forwards client messages until the connection fails. Clients that exceed
// the message rate are disconnected with a policy violation.
func (h *Handler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- wsMessage) {
	defer cancel()
	conn.SetReadLimit(wsMaxMessage)
	limiter := rate.NewLimiter(rate.Limit(h.msgRate), h.msgBurst)

	// The connection stays open while the client answers our pings or talks to us.
	idle := 2*h.pingInterval + wsWriteWait
	extend := func() error { return conn.SetReadDeadline(time.Now().Add(idle)) }
	_ = extend()
	conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("WebSocket closed unexpectedly")
			}
			return
		}
		_ = extend()
		if !limiter.Allow() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, wsPolicyClosed),
				time.Now().Add(wsWriteWait))
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}
