// Package api exposes the scheduler and the stored results over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/law-makers/leadharvest/internal/queue"
	"github.com/law-makers/leadharvest/internal/reqctx"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Scheduler accepts jobs and reports on them
type Scheduler interface {
	Submit(req models.JobRequest) (*queue.Job, int, error)
	Job(id string) (models.JobStatus, error)
	State() queue.State
	QueueLength() int
}

// Results reads and clears stored leads
type Results interface {
	Results(ctx context.Context, f models.ResultFilter) ([]models.Lead, error)
	Reset(ctx context.Context) error
}

// Options configures the router
type Options struct {
	AllowedOrigins []string
}

type server struct {
	sched   Scheduler
	results Results
	now     func() time.Time
}

// NewRouter builds the HTTP handler for the API
func NewRouter(sched Scheduler, results Results, opts Options) http.Handler {
	s := &server{sched: sched, results: results, now: time.Now}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "NOT_FOUND", "no route for "+req.URL.Path)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scrape", s.scrape).Methods(http.MethodPost)
	api.HandleFunc("/results", s.listResults).Methods(http.MethodGet)
	api.HandleFunc("/results", s.resetResults).Methods(http.MethodDelete)
	api.Handle("/export", handlers.CompressHandler(http.HandlerFunc(s.export))).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.job).Methods(http.MethodGet)
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", reqctx.HeaderName}),
		handlers.ExposedHeaders([]string{reqctx.HeaderName, "Content-Disposition"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(false),
	)

	return requestID(logRequests(recovery(cors(r))))
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error().Msg(fmt.Sprint(v...))
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := reqctx.WithRequestContext(r.Context(), r.Header.Get(reqctx.HeaderName))
		w.Header().Set(reqctx.HeaderName, reqctx.ID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		rc := reqctx.GetRequestContext(r.Context())
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Int("bytes", sw.bytes).
			Dur("duration", time.Since(rc.StartTime)).
			Str("request_id", rc.RequestID).
			Msg("HTTP request")
	})
}
