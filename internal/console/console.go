package console

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/matthewbaird/genq/internal/engine"
)

// Handler manages WebSocket connections to the console.
type Handler struct {
	eng *engine.Engine
}

func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{eng: eng}
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("console: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	user := r.Header.Get("X-User")

	h.send(ctx, conn, ServerMessage{
		Type: "session",
		Data: SessionData{SessionID: uuid.New().String()},
	})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("console: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}

		switch msg.Type {
		case "query":
			h.handleQuery(ctx, conn, user, msg)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleQuery(ctx context.Context, conn *websocket.Conn, user string, msg ClientMessage) {
	var data QueryData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid query data")
		return
	}
	if data.Entity == "" {
		h.sendError(ctx, conn, msg.ID, "empty_entity", "entity is required")
		return
	}

	result, err := h.eng.Evaluate(ctx, engine.Request{
		Entity:   data.Entity,
		RawQuery: data.Query,
		User:     user,
	})
	if err != nil {
		h.sendError(ctx, conn, msg.ID, "unknown_entity", fmt.Sprintf("unknown entity: %s", data.Entity))
		return
	}
	h.send(ctx, conn, ServerMessage{Type: "result", RequestID: msg.ID, Data: result})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("console: write: %v", err)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
