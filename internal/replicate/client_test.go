package replicate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestClient(serverURL string) *Client {
	c := NewClient("test-token", "test-version")
	c.SetBaseURL(serverURL + "/v1")
	c.pollInterval = time.Millisecond
	return c
}

func TestGenerateEmoji_ImmediateSuccess(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/predictions":
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

			var body struct {
				Version string `json:"version"`
				Input   struct {
					Prompt         string `json:"prompt"`
					ApplyWatermark bool   `json:"apply_watermark"`
				} `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "test-version", body.Version)
			require.Equal(t, "A TOK emoji of a happy cat", body.Input.Prompt)
			require.False(t, body.Input.ApplyWatermark)

			writeJSON(w, map[string]any{
				"id":     "pred_1",
				"status": "succeeded",
				"output": []string{server.URL + "/img/0.png", server.URL + "/img/1.png"},
			})
		case "/img/0.png":
			w.Write([]byte("image-zero"))
		case "/img/1.png":
			w.Write([]byte("image-one"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	images, err := newTestClient(server.URL).GenerateEmoji(context.Background(), "A TOK emoji of a happy cat")
	require.NoError(t, err)
	require.Len(t, images, 2)
	require.Equal(t, []byte("image-zero"), images[0])
	require.Equal(t, []byte("image-one"), images[1])
}

func TestGenerateEmoji_PollsUntilTerminal(t *testing.T) {
	var polls int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/predictions":
			writeJSON(w, map[string]any{"id": "pred_2", "status": "processing"})
		case "/v1/predictions/pred_2":
			if atomic.AddInt32(&polls, 1) < 3 {
				writeJSON(w, map[string]any{"id": "pred_2", "status": "processing"})
				return
			}
			writeJSON(w, map[string]any{
				"id":     "pred_2",
				"status": "succeeded",
				"output": []string{server.URL + "/img.png"},
			})
		case "/img.png":
			w.Write([]byte("late-image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	images, err := newTestClient(server.URL).GenerateEmoji(context.Background(), "prompt")
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.Equal(t, []byte("late-image"), images[0])
	require.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(3))
}

// Output that isn't an array of URLs breaks the provider contract.
func TestGenerateEmoji_UnexpectedOutputShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":     "pred_3",
			"status": "succeeded",
			"output": map[string]string{"image": "not-a-list"},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GenerateEmoji(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrUnexpectedOutput)
}

func TestGenerateEmoji_PredictionFailed(t *testing.T) {
	msg := "NSFW content detected"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":     "pred_4",
			"status": "failed",
			"error":  msg,
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GenerateEmoji(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrPredictionFailed)
	require.Contains(t, err.Error(), msg)
}

func TestGenerateEmoji_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GenerateEmoji(context.Background(), "prompt")
	require.Error(t, err)
}

func TestGenerateEmoji_ContextCancelledWhilePolling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": "pred_5", "status": "processing"})
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL).GenerateEmoji(ctx, "prompt")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
