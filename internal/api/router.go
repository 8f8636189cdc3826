package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"shipscan/scanner-api/internal/model"
)

type Jobs interface {
	Start(target string) (model.ScanJob, error)
	Get(id string) (model.ScanJob, error)
}

type Streamer interface {
	ServeJob(w http.ResponseWriter, r *http.Request, jobID string)
}

type Handler struct {
	jobs   Jobs
	stream Streamer
	health func() map[string]string
	log    zerolog.Logger
}

// NewHandler wires the handlers. health may be nil.
func NewHandler(jobs Jobs, stream Streamer, health func() map[string]string, logger zerolog.Logger) *Handler {
	return &Handler{
		jobs:   jobs,
		stream: stream,
		health: health,
		log:    logger.With().Str("component", "api").Logger(),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", h.Health)

	scan := func(r chi.Router) {
		r.Post("/", h.StartScan)
		r.Get("/{id}", h.GetScan)
		r.Get("/{id}/ws", h.StreamScan)
	}
	r.Route("/scan", scan)
	r.Route("/api/scan", scan)

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Debug().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
