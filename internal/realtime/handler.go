// Package realtime bridges the in-process progress bus to websocket clients.
// A connection authenticates once at handshake time; the server derives the
// subscription topic from the authenticated identity, never from client
// input, so a user only ever sees events for assets they own.
package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"vidscreen/internal/config"
	"vidscreen/internal/progress"
	"vidscreen/internal/security"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Handler struct {
	bus      *progress.Bus
	cfg      *config.AppConfig
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(bus *progress.Bus, cfg *config.AppConfig, log zerolog.Logger) *Handler {
	return &Handler{
		bus: bus,
		cfg: cfg,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type wireEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Serve upgrades the request and streams the caller's events until either
// side closes. The token travels in the query string because browser
// websocket clients cannot set an Authorization header.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
		return
	}

	claims, err := security.ParseAccessToken(token, h.cfg.Security.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}
	identity := claims.Identity()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote its own response.
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := h.bus.Subscribe(identity.UserID)
	h.log.Debug().Str("user_id", identity.UserID).Msg("realtime client connected")

	go h.writePump(conn, sub, identity.UserID)
	go h.readPump(conn, sub, identity.UserID)
}

func (h *Handler) writePump(conn *websocket.Conn, sub *progress.Subscription, userID string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(wireEvent{Event: ev.Name, Data: ev.Payload}); err != nil {
				h.log.Debug().Err(err).Str("user_id", userID).Msg("realtime write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; its only job is noticing the close.
func (h *Handler) readPump(conn *websocket.Conn, sub *progress.Subscription, userID string) {
	defer func() {
		h.bus.Unsubscribe(sub)
		conn.Close()
		h.log.Debug().Str("user_id", userID).Msg("realtime client disconnected")
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
