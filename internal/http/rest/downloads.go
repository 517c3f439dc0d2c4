package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/fetchd/internal/broadcast"
	"github.com/italolelis/fetchd/internal/download"
	"github.com/italolelis/fetchd/internal/logctx"
	"github.com/italolelis/fetchd/internal/storage"
)

const maxRequestBody = 64 * 1024

// Downloader is the engine as seen by the control surface.
type Downloader interface {
	Start(ctx context.Context, rawURL, fileName string) error
	Snapshot() download.Snapshot
	Bridge() *broadcast.Bridge
}

type ForegroundToggler interface {
	SetForegroundVisible(visible bool)
}

type RunLister interface {
	GetRuns(ctx context.Context) ([]storage.RunRecord, error)
}

type StartRequest struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
}

type ForegroundRequest struct {
	Visible bool `json:"visible"`
}

type RunResponse struct {
	ID         string    `json:"id"`
	SourceURL  string    `json:"source_url"`
	FilePath   string    `json:"file_path"`
	Status     string    `json:"status"`
	Bytes      int64     `json:"bytes"`
	FinishedAt time.Time `json:"finished_at"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type DownloadsHandler struct {
	engine     Downloader
	foreground ForegroundToggler
	runs       RunLister
}

// NewDownloadsHandler creates the control surface. runs may be nil when the
// journal is disabled.
func NewDownloadsHandler(engine Downloader, foreground ForegroundToggler, runs RunLister) *DownloadsHandler {
	return &DownloadsHandler{
		engine:     engine,
		foreground: foreground,
		runs:       runs,
	}
}

func (h *DownloadsHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/downloads", h.HandleStart)
	r.Get("/downloads/state", h.HandleState)
	r.Put("/downloads/foreground", h.HandleForeground)
	r.Get("/downloads/events", h.HandleEvents)

	if h.runs != nil {
		r.Get("/downloads/runs", h.HandleRuns)
	}

	return r
}

// HandleStart triggers a download. The response does not wait for the run.
func (h *DownloadsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	var req StartRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		logger.Warn("failed to decode request", "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	err := h.engine.Start(r.Context(), req.URL, req.FileName)

	var malformed *download.MalformedRequestError

	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, h.engine.Snapshot())
	case errors.As(err, &malformed):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: malformed.Error(), Field: malformed.Field})
	case errors.Is(err, download.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		logger.Error("failed to start download", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to start download"})
	}
}

func (h *DownloadsHandler) HandleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *DownloadsHandler) HandleForeground(w http.ResponseWriter, r *http.Request) {
	var req ForegroundRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})

		return
	}

	h.foreground.SetForegroundVisible(req.Visible)

	logctx.LoggerFromContext(r.Context()).Info("foreground visibility changed", "visible", req.Visible)

	w.WriteHeader(http.StatusNoContent)
}

// HandleEvents streams a snapshot as a server-sent event on connect and after
// every state-change signal until the client goes away. Signals that arrive
// while a write is in flight collapse into one.
func (h *DownloadsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())
	rc := http.NewResponseController(w)

	signals := make(chan struct{}, 1)

	id := h.engine.Bridge().Register(broadcast.ObserverFunc(func() {
		select {
		case signals <- struct{}{}:
		default:
		}
	}))
	defer h.engine.Bridge().Unregister(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	logger.Debug("state observer connected", "observer_id", id)

	for {
		if err := writeEvent(w, h.engine.Snapshot()); err != nil {
			logger.Debug("state observer write failed", "err", err)

			return
		}

		if err := rc.Flush(); err != nil {
			logger.Warn("streaming not supported", "err", err)

			return
		}

		select {
		case <-r.Context().Done():
			logger.Debug("state observer disconnected", "observer_id", id)

			return
		case <-signals:
		}
	}
}

func (h *DownloadsHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	records, err := h.runs.GetRuns(r.Context())
	if err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to list runs", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list runs"})

		return
	}

	resp := make([]RunResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, RunResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeEvent(w http.ResponseWriter, snap download.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)

	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
