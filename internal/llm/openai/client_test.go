package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-wallet/internal/llm"
	"github.com/joseph-ayodele/ticket-wallet/internal/llm/openai"
)

func completion(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": content}}},
	})
	return b
}

func newClient(url string, retries int) *openai.Client {
	return openai.NewClient(openai.Config{
		APIKey:      "sk-test",
		BaseURL:     url,
		Model:       "gpt-4o-mini",
		Timeout:     5 * time.Second,
		MaxRetries:  retries,
		BackoffBase: time.Millisecond,
	}, nil)
}

const validReply = `{"title":"Hamlet","type":"eventTicket","serial":"A1","barcode_message":"QR","seat":"12","venue":null}`

func TestMapFields_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Len(t, body["messages"], 3)

		_, _ = w.Write(completion(validReply))
	}))
	defer srv.Close()

	out, raw, err := newClient(srv.URL, 0).MapFields(context.Background(), llm.MapRequest{RawText: "Hamlet"})
	require.NoError(t, err)
	assert.JSONEq(t, validReply, string(raw))
	assert.Equal(t, "Hamlet", out.Title)
	assert.Equal(t, "eventTicket", out.Type)
	require.NotNil(t, out.Seat)
	assert.Equal(t, "12", *out.Seat)
	assert.Nil(t, out.Venue)
}

func TestMapFields_RetriesRateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(completion(validReply))
	}))
	defer srv.Close()

	_, _, err := newClient(srv.URL, 3).MapFields(context.Background(), llm.MapRequest{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestMapFields_GivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, _, err := newClient(srv.URL, 2).MapFields(context.Background(), llm.MapRequest{})
	var httpErr *llm.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Status)
	assert.Equal(t, int32(3), hits.Load())
	assert.False(t, errors.Is(err, llm.ErrInvalidResponse))
}

func TestMapFields_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, _, err := newClient(srv.URL, 3).MapFields(context.Background(), llm.MapRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestMapFields_InvalidContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completion(`{"title":"x"}`))
	}))
	defer srv.Close()

	_, _, err := newClient(srv.URL, 0).MapFields(context.Background(), llm.MapRequest{})
	assert.ErrorIs(t, err, llm.ErrInvalidResponse)
}

func TestMapFields_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, _, err := newClient(srv.URL, 0).MapFields(context.Background(), llm.MapRequest{})
	assert.ErrorIs(t, err, llm.ErrInvalidResponse)
}

func TestMapFields_LenientSanitize(t *testing.T) {
	reply := "```json\n" +
		`{"event_name":"Hamlet","category":"concert","serial":"A1","barcode_message":"QR","seat":12,"venue":"","mood":"great"}` +
		"\n```"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completion(reply))
	}))
	defer srv.Close()

	out, _, err := newClient(srv.URL, 0).MapFields(context.Background(), llm.MapRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Hamlet", out.Title)
	assert.Equal(t, "eventTicket", out.Type)
	require.NotNil(t, out.Seat)
	assert.Equal(t, "12", *out.Seat)
	assert.Nil(t, out.Venue)
}

func TestMapFields_MissingKey(t *testing.T) {
	c := openai.NewClient(openai.Config{BaseURL: "http://127.0.0.1:1"}, nil)
	_, _, err := c.MapFields(context.Background(), llm.MapRequest{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, llm.ErrInvalidResponse))
}
