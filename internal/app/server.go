package app

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jon-lip/G2SMS-Public/internal/logger"
)

// StatusProvider reports the outcome of the last pass.
type StatusProvider interface {
	Status() *Status
}

// NewRouter serves Prometheus metrics, a liveness probe and the last pass
// status.
func NewRouter(status StatusProvider) *mux.Router {
	router := mux.NewRouter()

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		handleStatus(w, status.Status())
	}).Methods(http.MethodGet)

	return router
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func handleStatus(w http.ResponseWriter, st *Status) {
	w.Header().Set("Content-Type", "application/json")
	if st == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no pass has run yet"})
		return
	}

	if err := json.NewEncoder(w).Encode(st); err != nil {
		logger.GetLogger().Errorw("could not encode status", "error", err)
	}
}
