package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"FitCoachAI/pkg/logger"
	svc "FitCoachAI/pkg/services"
	"FitCoachAI/pkg/store"
)

const (
	wsReadLimit   = 1 << 20
	wsIdleTimeout = 60 * time.Second
	wsTurnTimeout = 90 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// origins are enforced by CORS at the HTTP layer
		return true
	},
}

type wsStartPayload struct {
	Type  string `json:"type"`
	Input string `json:"input"`
	ID    *uint  `json:"id"`
}

// ChatWS runs one chat exchange per WebSocket connection.
//
//	-> {type: "start", input: string, id?: number}
//	<- {type: "delta", data: string}        (repeated)
//	<- {type: "done", id: number, response: string}
//	<- {type: "error", error: string}
//
// A {type: "stop"} frame sent while the reply streams cancels the exchange;
// nothing is stored in that case.
func ChatWS(chats ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.WithContext(c.Request.Context())

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		})

		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Debug("ws read start failed", zap.Error(err))
			return
		}
		var start wsStartPayload
		if err := json.Unmarshal(raw, &start); err != nil || strings.ToLower(start.Type) != "start" {
			_ = conn.WriteJSON(gin.H{"type": "error", "error": "invalid start payload"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), wsTurnTimeout)
		defer cancel()
		go watchForStop(conn, cancel)

		res, err := chats.SendStream(ctx, start.Input, start.ID, func(delta string) {
			_ = conn.WriteJSON(gin.H{"type": "delta", "data": delta})
		})
		if err != nil {
			_ = conn.WriteJSON(gin.H{"type": "error", "error": wsErrorMessage(ctx, err)})
			return
		}
		_ = conn.WriteJSON(gin.H{"type": "done", "id": res.ID, "response": res.Response})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

// watchForStop cancels the exchange when the client sends {type: "stop"} or
// goes away.
func watchForStop(conn *websocket.Conn, cancel context.CancelFunc) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			cancel()
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		var frame struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(msg, &frame)
		if strings.EqualFold(strings.TrimSpace(frame.Type), "stop") {
			cancel()
			return
		}
	}
}

func wsErrorMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, svc.ErrMissingInput):
		return msgNoInput
	case errors.Is(err, store.ErrNotFound):
		return msgNotFound
	case ctx.Err() != nil:
		return "cancelled"
	}
	logger.WithContext(ctx).Error("ws chat failed", zap.Error(err))
	return "Internal server error"
}
