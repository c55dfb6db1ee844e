package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/law-makers/leadharvest/internal/queue"
	"github.com/law-makers/leadharvest/internal/store"
	"github.com/law-makers/leadharvest/pkg/models"
)

type noopDiscoverer struct{}

func (noopDiscoverer) Discover(context.Context, string, string, int) ([]models.Business, error) {
	return nil, nil
}

type noopHarvester struct{}

func (noopHarvester) Harvest(context.Context, string) []models.Email { return nil }

func setup(t *testing.T) (http.Handler, *queue.Scheduler, *store.Store) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sched := queue.New(noopDiscoverer{}, noopHarvester{}, db, queue.Options{Capacity: 5})
	return NewRouter(sched, db, Options{}), sched, db
}

func seed(t *testing.T, db *store.Store) {
	t.Helper()
	ctx := context.Background()
	for _, b := range []models.Business{
		{Name: "Bakery #2", Website: "https://bakerco.example", Location: "Reno", Keyword: "bakery", Category: "Bakery"},
		{Name: "Sparks Cafe", Website: "https://sparks.example", Location: "Sparks", Keyword: "cafe"},
	} {
		id, err := db.InsertBusiness(ctx, b)
		if err != nil {
			t.Fatalf("InsertBusiness: %v", err)
		}
		db.InsertEmail(ctx, id, models.Email{Email: "owner@" + strings.TrimPrefix(b.Website, "https://"), SourcePage: b.Website})
	}
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestScrape_Accepted(t *testing.T) {
	h, sched, _ := setup(t)

	rec := do(h, http.MethodPost, "/api/scrape", `{"keyword":"bakery","location":"Reno","maxResults":10}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp scrapeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if resp.JobID == "" || resp.QueuePosition != 1 || resp.Location != "Reno" {
		t.Errorf("Unexpected response %+v", resp)
	}
	if sched.QueueLength() != 1 {
		t.Errorf("Expected 1 queued job, got %d", sched.QueueLength())
	}

	status, err := sched.Job(resp.JobID)
	if err != nil || status.MaxResults != 10 {
		t.Errorf("Unexpected job %+v, %v", status, err)
	}
}

func TestScrape_DefaultsAndCityAlias(t *testing.T) {
	h, sched, _ := setup(t)

	rec := do(h, http.MethodPost, "/api/scrape", `{"keyword":"bakery","city":"Reno"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	var resp scrapeResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	status, _ := sched.Job(resp.JobID)
	if status.Location != "Reno" || status.MaxResults != models.DefaultMaxResults {
		t.Errorf("Expected city alias and default limit, got %+v", status)
	}
}

func TestScrape_Validation(t *testing.T) {
	h, sched, _ := setup(t)

	tests := []string{
		`{"keyword":"","location":"Reno"}`,
		`{"keyword":"bakery","location":"  "}`,
		`{"keyword":"bakery","location":"Reno","maxResults":-5}`,
		`not json`,
	}
	for _, body := range tests {
		rec := do(h, http.MethodPost, "/api/scrape", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
			continue
		}
		var e APIError
		json.Unmarshal(rec.Body.Bytes(), &e)
		if e.Error.Code != "VALIDATION" || e.Error.RequestID == "" {
			t.Errorf("%s: unexpected error body %s", body, rec.Body.String())
		}
	}
	if sched.QueueLength() != 0 {
		t.Errorf("Expected nothing queued, got %d", sched.QueueLength())
	}
}

func TestResults_Filter(t *testing.T) {
	h, _, db := setup(t)
	seed(t, db)

	rec := do(h, http.MethodGet, "/api/results?location=Reno", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body struct {
		Results []models.Lead `json:"results"`
		Count   int           `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Count != 1 || body.Results[0].BusinessName != "Bakery #2" {
		t.Errorf("Unexpected results %+v", body)
	}

	rec = do(h, http.MethodGet, "/api/results", "")
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Count != 2 {
		t.Errorf("Expected 2 unfiltered results, got %d", body.Count)
	}
}

func TestExport_CSV(t *testing.T) {
	h, _, db := setup(t)
	seed(t, db)

	rec := do(h, http.MethodGet, "/api/export?location=Reno", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Unexpected content type %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "leads-all-reno-") {
		t.Errorf("Unexpected disposition %s", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || lines[0] != "business_name,website,email,email_source_page,city,category" {
		t.Errorf("Unexpected export %q", rec.Body.String())
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	h, _, _ := setup(t)
	if rec := do(h, http.MethodGet, "/api/export?format=xml", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestReset(t *testing.T) {
	h, _, db := setup(t)
	seed(t, db)

	if rec := do(h, http.MethodDelete, "/api/results", ""); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	businesses, emails, _ := db.Counts(context.Background())
	if businesses != 0 || emails != 0 {
		t.Errorf("Expected empty store, got %d businesses %d emails", businesses, emails)
	}
}

func TestJobStatus(t *testing.T) {
	h, sched, _ := setup(t)

	job, _, err := sched.Submit(models.JobRequest{Keyword: "bakery", Location: "Reno"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rec := do(h, http.MethodGet, "/api/jobs/"+job.ID(), "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"state":"queued"`) {
		t.Errorf("Unexpected job response %d %s", rec.Code, rec.Body.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}
	rec = do(h, http.MethodGet, "/api/jobs/"+job.ID(), "")
	if !strings.Contains(rec.Body.String(), `"state":"finished"`) {
		t.Errorf("Expected finished job, got %s", rec.Body.String())
	}

	rec = do(h, http.MethodGet, "/api/jobs/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	h, _, _ := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "trace-42" {
		t.Errorf("Expected request id to be echoed, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), `"state":"idle"`) {
		t.Errorf("Unexpected health body %s", rec.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	h, _, _ := setup(t)
	rec := do(h, http.MethodGet, "/api/nothing", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "NOT_FOUND") {
		t.Errorf("Unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
