package chat

import (
	"net"
	"net/http"
	"time"

	"duochat/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	readLimit    = 1 << 20 // 1MB
	readWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Authenticator resolves a live-connection credential to a user id before
// registration is permitted.
type Authenticator interface {
	ResolveUserID(token string) (string, error)
}

// TypingRelay is the slice of the message coordinator the websocket layer
// needs: typing passes through it, never through persistence.
type TypingRelay interface {
	EmitTyping(senderID, receiverID string)
	EmitStopTyping(senderID, receiverID string)
	ClearTyping(senderID string)
}

// Gateway owns the websocket endpoint: authenticate, register, pump inbound
// typing events, and clean up on disconnect.
type Gateway struct {
	reg   *Registry
	auth  Authenticator
	relay TypingRelay
}

func NewGateway(reg *Registry, auth Authenticator, relay TypingRelay) *Gateway {
	return &Gateway{reg: reg, auth: auth, relay: relay}
}

// HandleWS serves GET /ws?token=<jwt>. Connections without a resolvable user
// id are refused before any registration happens.
func (g *Gateway) HandleWS(c *gin.Context) {
	userID, err := g.auth.ResolveUserID(c.Query("token"))
	if err != nil || userID == "" {
		logger.Infof("[HandleWS] refuse connection: %v", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	ws.SetReadLimit(readLimit)
	if err := ws.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		logger.Infof("[HandleWS] set read deadline: %v", err)
		_ = ws.Close()
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readWait))
	})

	conn := NewClientConn(userID, ws)
	g.reg.Register(userID, conn)
	logger.Infof("[HandleWS] connected user=%s session=%s remote=%v", userID, conn.SessionID(), conn.Remote)

	stopPing := make(chan struct{})
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-t.C:
				_ = ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
			}
		}
	}()

	g.readLoop(userID, conn, ws)

	// ---- disconnect ----
	close(stopPing)
	// Typing state belongs to the user, not the connection. Only the current
	// connection's disconnect may clear it; a superseded connection's late
	// exit must leave the new connection's edge alone.
	if g.reg.Unregister(conn) {
		g.relay.ClearTyping(userID)
	}
	conn.Close()
	logger.Infof("[HandleWS] disconnected user=%s session=%s", userID, conn.SessionID())
}

func (g *Gateway) readLoop(userID string, conn *ClientConn, ws *websocket.Conn) {
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed user=%s session=%s err=%v", userID, conn.SessionID(), rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout user=%s session=%s err=%v", userID, conn.SessionID(), rerr)
			} else {
				logger.Infof("[WS] read err user=%s session=%s err=%v", userID, conn.SessionID(), rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] ParseFrame err user=%s err=%v sample=%q len=%d", userID, perr, sample, len(data))
			continue
		}

		switch frame.Event {
		case EventTyping, EventStopTyping:
			req, err := ParseTypingRequest(frame)
			if err != nil {
				logger.Infof("[WS] bad %s frame user=%s err=%v", frame.Event, userID, err)
				continue
			}
			if frame.Event == EventTyping {
				g.relay.EmitTyping(userID, req.ReceiverID)
			} else {
				g.relay.EmitStopTyping(userID, req.ReceiverID)
			}
		default:
			logger.Infof("[WS] no handler for event=%s user=%s", frame.Event, userID)
		}
	}
}
