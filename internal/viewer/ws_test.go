package viewer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"learnhub_backend/internal/annotation"
	"learnhub_backend/internal/avatar"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialSession(t *testing.T, s *Session) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ServeWS(s, w, r, WSConfig{CheckOrigin: func(*http.Request) bool { return true }})
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil 跳过头像动画帧等其他消息
func readUntil(t *testing.T, conn *websocket.Conn, typ string) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg received
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(WSMessage{Type: typ, Data: raw}))
}

func TestServeWS_InitialAvatar(t *testing.T) {
	s := openSession(t, newFakeAPI(t))
	conn := dialSession(t, s)

	msg := readUntil(t, conn, MsgAvatar)
	var snap avatar.Snapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	assert.Equal(t, avatar.Idle, snap.State)
}

func TestServeWS_VideoAndTab(t *testing.T) {
	s := openSession(t, newFakeAPI(t))
	conn := dialSession(t, s)
	readUntil(t, conn, MsgAvatar)

	send(t, conn, MsgVideo, map[string]any{"event": "play"})
	msg := readUntil(t, conn, MsgAvatar)
	var snap avatar.Snapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	assert.Equal(t, avatar.Listening, snap.State)

	var state VideoState
	require.NoError(t, json.Unmarshal(readUntil(t, conn, MsgVideo).Data, &state))
	assert.True(t, state.Playing)

	send(t, conn, MsgTab, map[string]any{"tab": "exercise"})
	readUntil(t, conn, MsgTab)
	assert.Equal(t, TabExercise, s.Tab())

	send(t, conn, MsgTab, map[string]any{"tab": "nope"})
	var errText string
	require.NoError(t, json.Unmarshal(readUntil(t, conn, MsgError).Data, &errText))
	assert.Equal(t, ErrUnknownTab.Error(), errText)
}

func TestServeWS_Annotation(t *testing.T) {
	s := openSession(t, newFakeAPI(t))
	_, err := s.OpenDocument(t.Context(), "a.png", "image/png", []byte("x"), annotation.DocumentBox{Width: 100, Height: 100})
	require.NoError(t, err)
	conn := dialSession(t, s)

	send(t, conn, MsgAnnotation, annotation.Event{Type: annotation.EventTouchStart, Touches: []annotation.PointerEvent{{ClientX: 1, ClientY: 1}}})
	var reply annotationReply
	require.NoError(t, json.Unmarshal(readUntil(t, conn, MsgAnnotation).Data, &reply))
	assert.True(t, reply.Response.PreventDefault)

	send(t, conn, MsgAnnotation, annotation.Event{Type: annotation.EventTool, Tool: annotation.ToolCircle})
	require.NoError(t, json.Unmarshal(readUntil(t, conn, MsgAnnotation).Data, &reply))
	assert.Equal(t, annotation.ToolCircle, reply.Layer.Tool)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	readUntil(t, conn, MsgError)
}

func TestServeWS_SessionCloseDisconnects(t *testing.T) {
	s := openSession(t, newFakeAPI(t))
	conn := dialSession(t, s)
	readUntil(t, conn, MsgAvatar)
	require.Eventually(t, func() bool { return s.Conns() == 1 }, time.Second, 10*time.Millisecond)

	s.Close()
	assert.Equal(t, 0, s.Conns())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived, websocket.CloseGoingAway), "unexpected read error: %v", err)

	late := dialSession(t, s)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected read error: %v", err)
}
