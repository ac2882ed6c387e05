package gpt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"total_kcal\": 330}"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL).WithModel("gpt-4o-mini")
	out, err := c.Complete(context.Background(), "system", "200 г курицы", true)
	require.NoError(t, err)
	assert.Equal(t, `{"total_kcal": 330}`, out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok, "JSON mode must set response_format")
	assert.Equal(t, "json_object", format["type"])

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "200 г курицы", msgs[1].(map[string]any)["content"])
}

func TestClient_PlainText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "TOTAL_KCAL: 950"}}]}`))
	}))
	defer srv.Close()

	out, err := NewClientWithBaseURL("k", srv.URL).Complete(context.Background(), "s", "u", false)
	require.NoError(t, err)
	assert.Equal(t, "TOTAL_KCAL: 950", out)
	_, hasFormat := got["response_format"]
	assert.False(t, hasFormat)
}

func TestClient_Errors(t *testing.T) {
	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices": []}`))
		}))
		defer srv.Close()

		_, err := NewClientWithBaseURL("k", srv.URL).Complete(context.Background(), "s", "u", true)
		assert.ErrorContains(t, err, "no response")
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
		}))
		defer srv.Close()

		_, err := NewClientWithBaseURL("k", srv.URL).Complete(context.Background(), "s", "u", true)
		assert.Error(t, err)
	})
}

func TestGeminiClient_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.0-flash:generateContent"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"kcal_per_100g\": 165}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), "test-key", "", srv.URL)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "system", "курица", true)
	require.NoError(t, err)
	assert.Equal(t, `{"kcal_per_100g": 165}`, out)

	cfg, ok := got["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	assert.Contains(t, got, "systemInstruction")
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "", "")
	assert.Error(t, err)
}
