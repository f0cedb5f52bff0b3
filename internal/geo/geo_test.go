package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "webshop/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "41.31", r.URL.Query().Get("lat"))
		assert.Equal(t, "69.24", r.URL.Query().Get("lon"))
		assert.Equal(t, "18", r.URL.Query().Get("zoom"))

		w.Write([]byte(`{"display_name": "Amir Temur ko'chasi, Tashkent, Uzbekistan"}`))
	}))
	defer srv.Close()

	addr, err := NewClient(srv.URL).Reverse(context.Background(), "41.31", "69.24")
	require.NoError(t, err)
	assert.Equal(t, "Amir Temur ko'chasi, Tashkent, Uzbekistan", addr)
}

func TestReverse_NoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Unable to geocode"}`))
	}))
	defer srv.Close()

	addr, err := NewClient(srv.URL).Reverse(context.Background(), "0", "0")
	require.NoError(t, err)
	assert.Equal(t, "Manzil topilmadi", addr)
}

func TestReverse_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Reverse(context.Background(), "41.31", "69.24")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
