package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/adwski/counterd/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	wsCommandUp  = "up"
	wsCommandGet = "get"

	wsCloseTimeout = time.Second
)

type wsResponse struct {
	Count *uint64 `json:"count,omitempty"`
	Error string  `json:"error,omitempty"`
}

// ws serves counter commands over websocket connection.
// Each text message is a command, each command gets exactly one reply.
func (g *Gateway) ws(w http.ResponseWriter, r *http.Request) {
	log := g.requestLogger(r.Context())

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already replied with error status
		log.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		select {
		case <-g.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(wsCloseTimeout))
			cancel()
			_ = conn.Close()
		case <-ctx.Done():
		}
	}()

	log.Debug("websocket connected")

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("websocket read failed", "error", err)
			} else {
				log.Debug("websocket closed")
			}
			return
		}
		if mt != websocket.TextMessage {
			if err = conn.WriteJSON(wsResponse{Error: "text message expected"}); err != nil {
				return
			}
			continue
		}

		resp := g.wsCommand(ctx, log, strings.TrimSpace(string(msg)))
		if err = conn.WriteJSON(resp); err != nil {
			log.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func (g *Gateway) wsCommand(ctx context.Context, log logger.Logger, cmd string) wsResponse {
	reqCtx, cancel := g.requestContext(ctx)
	defer cancel()

	g.enter()
	defer g.leave()

	switch cmd {
	case wsCommandUp:
		if err := g.counter.Increment(reqCtx); err != nil {
			log.Error("websocket count up failed", "error", err)
			return wsResponse{Error: err.Error()}
		}
		// second rendezvous, may include increments of other callers
		fallthrough
	case wsCommandGet:
		count, err := g.counter.Value(reqCtx)
		if err != nil {
			log.Error("websocket get count failed", "error", err)
			return wsResponse{Error: err.Error()}
		}
		log.Debug("websocket command served", "command", cmd, "count", count)
		return wsResponse{Count: &count}
	default:
		return wsResponse{Error: "unknown command: " + cmd}
	}
}
