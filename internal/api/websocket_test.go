package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oydokon/webshop/internal/chat"
	"github.com/oydokon/webshop/internal/store"
)

func newChatEnv(t *testing.T) *httptest.Server {
	t.Helper()

	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(map[string]any{"message": map[string]string{"role": "assistant", "content": "Salom, "}})
		enc.Encode(map[string]any{"message": map[string]string{"role": "assistant", "content": "xaridor!"}, "done": true})
	}))
	t.Cleanup(ollama.Close)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := NewServer(Deps{
		Store:         st,
		Advisor:       chat.NewAdvisor(chat.NewClient(ollama.URL, "", nil), StoreContext(st), nil),
		SessionSecret: "test-secret",
	})

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestChatSocket(t *testing.T) {
	srv := newChatEnv(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WSMessage{
		Event: EventChat,
		Data:  map[string]any{"message": "salom"},
	}))

	var reply strings.Builder
	for {
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Event == EventDone {
			break
		}
		require.Equal(t, EventChunk, msg.Event)
		reply.WriteString(msg.Data["text"].(string))
	}
	assert.Equal(t, "Salom, xaridor!", reply.String())
}

func TestChatSocket_BadEvent(t *testing.T) {
	srv := newChatEnv(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WSMessage{Event: "bogus", Data: map[string]any{}}))

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventError, msg.Event)
	assert.Contains(t, msg.Data["error"], "unknown event")
}

func TestBlockingChatEndpoint(t *testing.T) {
	srv := newChatEnv(t)

	resp, err := http.Post(srv.URL+"/api/chat", "application/json",
		strings.NewReader(`{"message": "salom"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Salom, xaridor!", out["reply"])
}
