package orchestrator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the orchestrator to HTTP clients using go-chi.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler returns a Handler that uses the given Service and Logger.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type submitResponse struct {
	Record  DownloadRecord `json:"record"`
	Warning string         `json:"warning,omitempty"`
}

type currentResponse struct {
	Record DownloadRecord `json:"record"`
	Label  string         `json:"label"`
}

type historyResponse struct {
	Records []DownloadRecord `json:"records"`
	Count   HistoryCounts    `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Submit handles POST /downloads.
// Body: { "url": "https://...", "format": "mp4", "quality": "720p" }.
// Format and quality default to mp4 and 720p.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid download body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rec := h.svc.Submit(r.Context(), req)
	writeJSON(w, http.StatusAccepted, submitResponse{Record: rec, Warning: PlatformWarning(rec.URL)})
}

// ListHistory handles GET /downloads.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	records := h.svc.ListHistory()
	if records == nil {
		records = []DownloadRecord{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Records: records, Count: h.svc.HistoryCounts()})
}

// Current handles GET /downloads/current. It answers 204 when nothing is in
// flight.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.svc.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, currentResponse{Record: rec, Label: rec.StatusLabel()})
}

// DeleteRecord handles DELETE /downloads/{id}. Deleting an unknown id succeeds.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.svc.DeleteRecord(id)
	w.WriteHeader(http.StatusNoContent)
}

// Retry handles POST /downloads/{id}/retry.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	rec, err := h.svc.RetryByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		h.log.Error("retry failed", slog.String("record_id", id), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.log.Info("download retried", slog.String("record_id", id), slog.String("new_record_id", rec.ID))
	writeJSON(w, http.StatusAccepted, submitResponse{Record: rec, Warning: PlatformWarning(rec.URL)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
