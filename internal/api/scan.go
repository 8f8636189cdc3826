package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"shipscan/scanner-api/internal/jobs"
	"shipscan/scanner-api/internal/security"
	"shipscan/scanner-api/internal/store"
)

const maxBodyBytes = 64 << 10

type startRequest struct {
	URL string `json:"url"`
}

type startResponse struct {
	ID string `json:"id"`
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// StartScan handles POST /scan.
func (h *Handler) StartScan(w http.ResponseWriter, r *http.Request) {
	var req startRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorBody("invalid json"))
		return
	}

	job, err := h.jobs.Start(req.URL)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidTarget) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorBody(err.Error()))
			return
		}
		h.log.Error().Err(err).Msg("failed to start scan")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorBody("failed to start scan"))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, startResponse{ID: job.ID})
}

// GetScan handles GET /scan/{id}.
func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !security.ValidJobID(id) {
		h.notFound(w, r)
		return
	}
	job, err := h.jobs.Get(id)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	render.JSON(w, r, job)
}

// StreamScan handles GET /scan/{id}/ws.
func (h *Handler) StreamScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !security.ValidJobID(id) {
		h.notFound(w, r)
		return
	}
	if _, err := h.jobs.Get(id); err != nil {
		h.lookupError(w, r, err)
		return
	}
	h.stream.ServeJob(w, r, id)
}

func (h *Handler) lookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.notFound(w, r)
		return
	}
	h.log.Error().Err(err).Msg("failed to load scan")
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, errorBody("failed to load scan"))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if h.health != nil {
		for k, v := range h.health() {
			body[k] = v
		}
	}
	render.JSON(w, r, body)
}
