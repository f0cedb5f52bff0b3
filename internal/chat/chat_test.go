package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama answers like an ollama /api/chat endpoint, echoing the
// prompt back in two chunks when streaming.
func fakeOllama(t *testing.T, gotPrompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.Messages, 1)
		*gotPrompt = req.Messages[0].Content

		enc := json.NewEncoder(w)
		if req.Stream {
			enc.Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: "Salom, "}})
			enc.Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: "xaridor!"}, Done: true})
			return
		}
		enc.Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: "Salom, xaridor!"}, Done: true})
	}))
}

func TestReply(t *testing.T) {
	var prompt string
	srv := fakeOllama(t, &prompt)
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	reply, err := c.Reply(context.Background(), "Salom", "")
	require.NoError(t, err)
	assert.Equal(t, "Salom, xaridor!", reply)

	assert.Contains(t, prompt, "Savol: Salom")
	assert.Contains(t, prompt, "Hech qanday ma'lumot topilmadi.")
}

func TestStream(t *testing.T) {
	var prompt string
	srv := fakeOllama(t, &prompt)
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	var chunks []string
	err := c.Stream(context.Background(), "Salom", "ctx", func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Salom, ", "xaridor!"}, chunks)
	assert.Contains(t, prompt, "Ma'lumot: ctx")
}

func TestReply_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	_, err := c.Reply(context.Background(), "Salom", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

type stubSource struct {
	orders, products string
	err              error
}

func (s stubSource) OrdersContext(context.Context) (string, error)   { return s.orders, s.err }
func (s stubSource) ProductsContext(context.Context) (string, error) { return s.products, s.err }

func TestAdvisor_ContextRouting(t *testing.T) {
	var prompt string
	srv := fakeOllama(t, &prompt)
	defer srv.Close()

	a := NewAdvisor(NewClient(srv.URL, "", nil), stubSource{orders: "ORDER ROWS", products: "PRODUCT ROWS"}, nil)
	ctx := context.Background()

	_, err := a.Answer(ctx, "Mening BUYURTMAM qayerda?")
	require.NoError(t, err)
	assert.Contains(t, prompt, "ORDER ROWS")

	_, err = a.Answer(ctx, "qanday mahsulotlar bor?")
	require.NoError(t, err)
	assert.Contains(t, prompt, "PRODUCT ROWS")

	_, err = a.Answer(ctx, "salom")
	require.NoError(t, err)
	assert.NotContains(t, prompt, "ROWS")
}

func TestAdvisor_ContextErrorDegrades(t *testing.T) {
	var prompt string
	srv := fakeOllama(t, &prompt)
	defer srv.Close()

	a := NewAdvisor(NewClient(srv.URL, "", nil), stubSource{err: errors.New("db locked")}, nil)

	reply, err := a.Answer(context.Background(), "buyurtma holati?")
	require.NoError(t, err, "a failed context lookup must not fail the chat")
	assert.NotEmpty(t, reply)
	assert.True(t, strings.Contains(prompt, "Hech qanday ma'lumot topilmadi."))
}
