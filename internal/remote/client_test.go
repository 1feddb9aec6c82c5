package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/"}, nil)
}

func TestClient_Submit_immediate(t *testing.T) {
	var got SubmitRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/download", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		w.Write([]byte(`{"success":true,"downloadUrl":"https://cdn/x.mp4","title":"Clip"}`))
	})

	res, err := c.Submit(context.Background(), SubmitRequest{URL: "https://a/b", Format: "mp4", Quality: "720p"})
	require.NoError(t, err)
	assert.Equal(t, Immediate{DownloadURL: "https://cdn/x.mp4", Title: "Clip"}, res)
	assert.Equal(t, SubmitRequest{URL: "https://a/b", Format: "mp4", Quality: "720p"}, got)
}

func TestClient_Submit_deferred(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobId":"job_1"}`))
	})

	res, err := c.Submit(context.Background(), SubmitRequest{URL: "https://a/b"})
	require.NoError(t, err)
	assert.Equal(t, Deferred{JobID: "job_1"}, res)
}

func TestClient_Submit_non_2xx(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json_error_field", http.StatusBadRequest, `{"error":"bad url"}`, "bad url"},
		{"json_message_field", http.StatusForbidden, `{"message":"private"}`, "private"},
		{"plain_text", http.StatusTooManyRequests, "slow down", "slow down"},
		{"empty_body", http.StatusInternalServerError, "", "HTTP error! status: 500"},
		{"json_without_fields", http.StatusNotFound, `{}`, "HTTP error! status: 404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Submit(context.Background(), SubmitRequest{URL: "https://a/b"})
			var se *StatusError
			require.True(t, errors.As(err, &se), "expected *StatusError, got %v", err)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.message, se.Message)
		})
	}
}

func TestClient_Submit_invalid_json(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	})

	_, err := c.Submit(context.Background(), SubmitRequest{URL: "https://a/b"})
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestClient_Submit_transport_error(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(Config{BaseURL: srv.URL}, nil)

	_, err := c.Submit(context.Background(), SubmitRequest{URL: "https://a/b"})
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestClient_Status(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/api/status/done":
			w.Write([]byte(`{"status":"completed","downloadUrl":"https://x/y.mp4","title":"Clip"}`))
		case "/api/status/broken":
			w.Write([]byte(`{"status":"failed","error":"codec"}`))
		case "/api/status/busy":
			w.Write([]byte(`{"status":"running","progress":40.4}`))
		case "/api/status/quiet":
			w.Write([]byte(`{"status":"queued"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()

	res, err := c.Status(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, JobCompleted{DownloadURL: "https://x/y.mp4", Title: "Clip"}, res)

	res, err = c.Status(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, JobFailed{Error: "codec"}, res)

	res, err = c.Status(ctx, "busy")
	require.NoError(t, err)
	running, ok := res.(JobRunning)
	require.True(t, ok)
	require.NotNil(t, running.Progress)
	assert.Equal(t, 40, *running.Progress)

	res, err = c.Status(ctx, "quiet")
	require.NoError(t, err)
	assert.Equal(t, JobRunning{Status: "queued"}, res)

	_, err = c.Status(ctx, "missing")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}
