package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Dan9191/mercury-notifier/internal/middleware"
	"github.com/Dan9191/mercury-notifier/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ReportSource exposes the most recent run report
type ReportSource interface {
	LastReport() *service.RunReport
}

type Handler struct {
	svc ReportSource
	log *logrus.Logger
}

func NewHandler(svc ReportSource, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// NewRouter wires the status routes. /status requires a bearer JWT when jwtSecret is set.
func NewRouter(h *Handler, jwtSecret string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	var status http.Handler = http.HandlerFunc(h.Status)
	if jwtSecret != "" {
		status = middleware.AuthMiddleware(jwtSecret, h.log)(status)
	}
	r.Handle("/status", status).Methods("GET")
	return r
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status returns the last run report
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	report := h.svc.LastReport()
	if report == nil {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"status": "no runs yet"})
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}
