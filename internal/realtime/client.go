package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/response"
)

const writeWait = 10 * time.Second

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Authenticator resolves the token passed on the upgrade request.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Principal, error)
}

// Client is one WebSocket connection subscribed to its organization's events.
type Client struct {
	ID             string
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	hub            *Hub
	conn           *websocket.Conn
	send           chan WSMessage
	token          string
	authn          Authenticator
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// ServeWs authenticates ?token= and streams the caller's organization events.
// Messages from the client are ignored.
func ServeWs(hub *Hub, authn Authenticator, allowedOrigins []string, logger *zap.Logger) gin.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.Unauthorized(c, "token required")
			return
		}
		p, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := &Client{
			ID:             uuid.NewString(),
			OrganizationID: p.OrganizationID,
			UserID:         p.UserID,
			hub:            hub,
			conn:           conn,
			send:           make(chan WSMessage, 256),
			token:          token,
			authn:          authn,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.stillAuthorized() {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session no longer valid"))
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// stillAuthorized re-resolves the connection's token. It fails once the token expires,
// the identity is deleted or the identity moves to another organization.
func (c *Client) stillAuthorized() bool {
	if c.authn == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	p, err := c.authn.Authenticate(ctx, c.token)
	return err == nil && p.OrganizationID == c.OrganizationID
}
