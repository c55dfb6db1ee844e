package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/law-makers/leadharvest/internal/export"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

type scrapeRequest struct {
	Keyword    string `json:"keyword"`
	Location   string `json:"location"`
	City       string `json:"city"`
	MaxResults *int   `json:"maxResults"`
}

type scrapeResponse struct {
	Message       string `json:"message"`
	JobID         string `json:"jobId"`
	QueuePosition int    `json:"queuePosition"`
	Keyword       string `json:"keyword"`
	Location      string `json:"location"`
}

func (s *server) scrape(w http.ResponseWriter, r *http.Request) {
	var body scrapeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", "invalid JSON: "+err.Error())
		return
	}

	req := models.JobRequest{
		Keyword:    body.Keyword,
		Location:   body.Location,
		MaxResults: models.DefaultMaxResults,
	}
	if strings.TrimSpace(req.Location) == "" {
		req.Location = body.City
	}
	if body.MaxResults != nil {
		req.MaxResults = *body.MaxResults
	}

	job, pos, err := s.sched.Submit(req)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	status := job.Status()
	writeJSON(w, http.StatusAccepted, scrapeResponse{
		Message:       "Scraping job queued",
		JobID:         status.ID,
		QueuePosition: pos,
		Keyword:       status.Keyword,
		Location:      status.Location,
	})
}

func filterFrom(r *http.Request) models.ResultFilter {
	q := r.URL.Query()
	loc := q.Get("location")
	if loc == "" {
		loc = q.Get("city")
	}
	return models.ResultFilter{
		Keyword:  strings.TrimSpace(q.Get("keyword")),
		Location: strings.TrimSpace(loc),
	}
}

func (s *server) listResults(w http.ResponseWriter, r *http.Request) {
	leads, err := s.results.Results(r.Context(), filterFrom(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": leads,
		"count":   len(leads),
	})
}

func (s *server) export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	filter := filterFrom(r)
	leads, err := s.results.Results(r.Context(), filter)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	switch format {
	case export.FormatJSON:
		contentType = "application/json"
	case export.FormatMarkdown:
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(filter, s.now(), format)+`"`)
	if err := export.Write(w, format, leads); err != nil {
		log.Warn().Err(err).Msg("Export interrupted")
	}
}

func (s *server) resetResults(w http.ResponseWriter, r *http.Request) {
	if err := s.results.Reset(r.Context()); err != nil {
		writeErr(w, r, err)
		return
	}
	log.Info().Msg("All results cleared")
	writeJSON(w, http.StatusOK, map[string]string{"message": "All results cleared"})
}

func (s *server) job(w http.ResponseWriter, r *http.Request) {
	status, err := s.sched.Job(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"state":  s.sched.State(),
		"queued": s.sched.QueueLength(),
	})
}
