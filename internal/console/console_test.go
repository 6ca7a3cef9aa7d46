package console

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/genq/internal/backend/memory"
	"github.com/matthewbaird/genq/internal/engine"
	"github.com/matthewbaird/genq/internal/schema"
)

// received mirrors ServerMessage with a raw payload, so tests can
// decode Data per message type.
type received struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func dialConsole(t *testing.T) *websocket.Conn {
	t.Helper()

	reg := schema.NewRegistry()
	reg.Register(&schema.EntityType{
		Name: "city",
		Fields: map[string]*schema.Field{
			"id":   {Name: "id", Kind: schema.KindInt},
			"name": {Name: "name", Kind: schema.KindString},
		},
		FieldOrder: []string{"id", "name"},
	})
	st := memory.NewStore(reg)
	require.NoError(t, st.Insert("city", map[string]any{"id": int64(1), "name": "Lyon"}))
	require.NoError(t, st.Insert("city", map[string]any{"id": int64(2), "name": "Oslo"}))

	eng, err := engine.New(reg, st, engine.Options{})
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(eng))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg received
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

func TestConsoleSession(t *testing.T) {
	conn := dialConsole(t)

	msg := read(t, conn)
	require.Equal(t, "session", msg.Type)
	var session SessionData
	require.NoError(t, json.Unmarshal(msg.Data, &session))
	assert.NotEmpty(t, session.SessionID)
}

func TestConsoleQuery(t *testing.T) {
	conn := dialConsole(t)
	read(t, conn) // session

	data, err := json.Marshal(QueryData{Entity: "city", Query: "name=Oslo"})
	require.NoError(t, err)
	send(t, conn, ClientMessage{Type: "query", ID: "q1", Data: data})

	msg := read(t, conn)
	require.Equal(t, "result", msg.Type)
	assert.Equal(t, "q1", msg.RequestID)

	var result struct {
		Status bool             `json:"status"`
		Rows   []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &result))
	require.True(t, result.Status)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Oslo", result.Rows[0]["name"])
}

func TestConsoleQueryErrorsStayInEnvelope(t *testing.T) {
	conn := dialConsole(t)
	read(t, conn) // session

	data, err := json.Marshal(QueryData{Entity: "city", Query: "nope=1"})
	require.NoError(t, err)
	send(t, conn, ClientMessage{Type: "query", ID: "q1", Data: data})

	msg := read(t, conn)
	require.Equal(t, "result", msg.Type)

	var result map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &result))
	assert.Equal(t, false, result["status"])
	assert.Equal(t, "UNKNOWN_FIELD", result["code"])
}

func TestConsoleProtocolErrors(t *testing.T) {
	conn := dialConsole(t)
	read(t, conn) // session

	data, err := json.Marshal(QueryData{Entity: "planet", Query: ""})
	require.NoError(t, err)
	send(t, conn, ClientMessage{Type: "query", ID: "q1", Data: data})
	msg := read(t, conn)
	require.Equal(t, "error", msg.Type)
	var perr ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &perr))
	assert.Equal(t, "unknown_entity", perr.Code)

	send(t, conn, ClientMessage{Type: "shout", ID: "q2"})
	msg = read(t, conn)
	require.Equal(t, "error", msg.Type)
	require.NoError(t, json.Unmarshal(msg.Data, &perr))
	assert.Equal(t, "unknown_type", perr.Code)
}

func TestConsolePing(t *testing.T) {
	conn := dialConsole(t)
	read(t, conn) // session

	send(t, conn, ClientMessage{Type: "ping", ID: "p1"})
	msg := read(t, conn)
	assert.Equal(t, "pong", msg.Type)
	assert.Equal(t, "p1", msg.RequestID)
}
