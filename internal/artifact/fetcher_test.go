package artifact

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	payload := strings.Repeat("0123456789", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "out")
	f := NewFetcher(Config{Dir: dir}, nil)

	var lastComplete int64
	res, err := f.Fetch(context.Background(), Request{
		URL:      srv.URL + "/files/clip.mp4",
		Name:     "Clip.mp4",
		Progress: func(complete, _ int64) { lastComplete = complete },
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Clip.mp4"), res.Path)
	assert.Equal(t, int64(len(payload)), res.Size)
	assert.Equal(t, int64(len(payload)), lastComplete)

	b, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, string(b))
}

func TestFetcher_Fetch_name_from_url(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	res, err := NewFetcher(Config{Dir: dir}, nil).Fetch(context.Background(), Request{URL: srv.URL + "/files/song.mp3"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "song.mp3"), res.Path)
}

func TestFetcher_Fetch_bad_status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(Config{Dir: t.TempDir()}, nil).Fetch(context.Background(), Request{URL: srv.URL + "/x.mp4", Name: "x.mp4"})
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		title, format, want string
	}{
		{"Clip", "mp4", "Clip.mp4"},
		{"a/b:c?", "mp3", "a_b_c_.mp3"},
		{"  ", "webm", "download.webm"},
		{"movie.MOV", "mov", "movie.MOV"},
		{"..", "avi", "download.avi"},
		{"raw", "", "raw"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.title, tt.format), "FileName(%q, %q)", tt.title, tt.format)
	}
}
