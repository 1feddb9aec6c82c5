package orchestrator

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"contentgrab/internal/remote"

	"github.com/go-chi/chi/v5"
)

func newTestHandler(t *testing.T, f *fakeRemote) (*Handler, *Service) {
	t.Helper()
	svc, _ := newTestService(t, f)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewHandler(svc, log), svc
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/downloads", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/", h.ListHistory)
		r.Get("/current", h.Current)
		r.Delete("/{id}", h.DeleteRecord)
		r.Post("/{id}/retry", h.Retry)
	})
	return r
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Submit(t *testing.T) {
	h, svc := newTestHandler(t, &fakeRemote{submitFn: immediate("https://cdn.example/v.mp4", "Video")})
	r := newTestRouter(h)

	rec := postJSON(r, "/downloads/", map[string]string{"url": "https://facebook.com/video/1?mibextid=z"})
	svc.Wait()

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var resp submitResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Record.Status != StatusPending {
		t.Errorf("expected pending record, got %s", resp.Record.Status)
	}
	if resp.Record.URL != "https://facebook.com/video/1" {
		t.Errorf("expected normalized url, got %s", resp.Record.URL)
	}
	if resp.Record.Format != FormatMP4 || resp.Record.Quality != Quality720p {
		t.Errorf("expected defaults, got %s/%s", resp.Record.Format, resp.Record.Quality)
	}
	if resp.Warning == "" {
		t.Error("expected a platform warning for facebook")
	}
}

func TestHandler_Submit_bad_request(t *testing.T) {
	h, _ := newTestHandler(t, &fakeRemote{submitFn: immediate("https://cdn.example/v.mp4", "")})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/downloads/", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", rec.Code)
	}

	rec = postJSON(r, "/downloads/", map[string]string{"url": "not-a-url"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid url, got %d", rec.Code)
	}
	var resp errorResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Error != ErrInvalidURL.Error() {
		t.Errorf("unexpected error body %q", resp.Error)
	}

	rec = postJSON(r, "/downloads/", map[string]string{"url": "https://example.com/v", "format": "mkv"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid format, got %d", rec.Code)
	}
}

func TestHandler_ListHistory(t *testing.T) {
	h, svc := newTestHandler(t, &fakeRemote{submitFn: immediate("https://cdn.example/v.mp4", "")})
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/downloads/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"records":[]`)) {
		t.Errorf("empty history should encode as an empty list: %s", rec.Body.String())
	}

	svc.Submit(t.Context(), DownloadRequest{URL: "https://example.com/v", Format: FormatMP4, Quality: Quality720p})
	svc.Wait()

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/downloads/", nil))
	var resp historyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Records) != 1 || resp.Count.Completed != 1 {
		t.Errorf("unexpected history %+v", resp)
	}
}

func TestHandler_Current(t *testing.T) {
	release := make(chan struct{})
	f := &fakeRemote{submitFn: func(remote.SubmitRequest) (remote.SubmitResult, error) {
		<-release
		return remote.Immediate{DownloadURL: "https://cdn.example/v.mp4"}, nil
	}}
	h, svc := newTestHandler(t, f)
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/downloads/current", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 when idle, got %d", rec.Code)
	}

	svc.Submit(t.Context(), DownloadRequest{URL: "https://example.com/v", Format: FormatMP4, Quality: Quality720p})

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/downloads/current", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 while in flight, got %d", rec.Code)
	}
	var resp currentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Label != "Downloading... 0%" {
		t.Errorf("unexpected label %q", resp.Label)
	}

	close(release)
	svc.Wait()
}

func TestHandler_DeleteRecord(t *testing.T) {
	h, svc := newTestHandler(t, &fakeRemote{submitFn: immediate("https://cdn.example/v.mp4", "")})
	r := newTestRouter(h)

	done := svc.Submit(t.Context(), DownloadRequest{URL: "https://example.com/v", Format: FormatMP4, Quality: Quality720p})
	svc.Wait()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/downloads/unknown", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for unknown id, got %d", rec.Code)
	}
	if len(svc.ListHistory()) != 1 {
		t.Error("unknown id must not change history")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/downloads/"+done.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if len(svc.ListHistory()) != 0 {
		t.Error("record should be deleted")
	}
}

func TestHandler_Retry(t *testing.T) {
	h, svc := newTestHandler(t, &fakeRemote{submitFn: immediate("https://cdn.example/v.mp4", "")})
	r := newTestRouter(h)

	first := svc.Submit(t.Context(), DownloadRequest{URL: "https://example.com/v", Format: FormatMP4, Quality: Quality720p})
	svc.Wait()

	rec := postJSON(r, "/downloads/"+first.ID+"/retry", nil)
	svc.Wait()
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var resp submitResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Record.ID == first.ID || resp.Record.URL != first.URL {
		t.Errorf("unexpected retry record %+v", resp.Record)
	}
	if len(svc.ListHistory()) != 2 {
		t.Errorf("expected 2 history records, got %d", len(svc.ListHistory()))
	}

	rec = postJSON(r, "/downloads/missing/retry", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
