package queue

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/law-makers/leadharvest/internal/errs"
	"github.com/law-makers/leadharvest/internal/export"
	"github.com/law-makers/leadharvest/internal/harvest"
	"github.com/law-makers/leadharvest/internal/render"
	"github.com/law-makers/leadharvest/internal/store"
	"github.com/law-makers/leadharvest/pkg/models"
)

type fakeDiscoverer struct {
	mu      sync.Mutex
	results []models.Business
	err     error
	calls   int
	block   chan struct{}
}

func (d *fakeDiscoverer) Discover(ctx context.Context, keyword, location string, max int) ([]models.Business, error) {
	d.mu.Lock()
	d.calls++
	block := d.block
	d.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return append([]models.Business(nil), d.results...), nil
}

// countingHarvester records every website it is asked to harvest
type countingHarvester struct {
	mu    sync.Mutex
	next  Harvester
	sites []string
	panic string
}

func (h *countingHarvester) Harvest(ctx context.Context, website string) []models.Email {
	h.mu.Lock()
	h.sites = append(h.sites, website)
	h.mu.Unlock()
	if website == h.panic {
		panic("renderer exploded")
	}
	return h.next.Harvest(ctx, website)
}

func (h *countingHarvester) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sites)
}

type staticHarvester map[string][]string

func (s staticHarvester) Harvest(_ context.Context, website string) []models.Email {
	var out []models.Email
	for _, e := range s[website] {
		out = append(out, models.Email{Email: e, SourcePage: website})
	}
	return out
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "leads.db"))
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testOptions() Options {
	return Options{Capacity: 10, History: 10}
}

// start runs the worker until the test ends
func start(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func wait(t *testing.T, job *Job) models.JobStatus {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("Job %s did not finish", job.ID())
	}
	return job.Status()
}

func runJob(t *testing.T, s *Scheduler, req models.JobRequest) models.JobStatus {
	t.Helper()
	job, _, err := s.Submit(req)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return wait(t, job)
}

func site(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
}

func TestScheduler_BakeryScenario(t *testing.T) {
	one := site(`<p>Questions? support@bakery-one.example</p>`)
	defer one.Close()
	two := site(`<footer>Write to <a href="mailto:owner@bakerco.example">the owner</a></footer>`)
	defer two.Close()

	disc := &fakeDiscoverer{results: []models.Business{
		{Name: "Bakery #1", Website: one.URL, Category: "Bakery"},
		{Name: "Bakery #2", Website: two.URL, Category: "Bakery"},
		{Name: "Bakery #3", Category: "Bakery"},
	}}
	hopts := harvest.DefaultOptions()
	hopts.PageDelay = 0
	harv := &countingHarvester{next: harvest.New(render.NewStatic(nil, nil, nil, "", nil), hopts)}
	db := openStore(t)

	s := New(disc, harv, db, testOptions())
	start(t, s)

	status := runJob(t, s, models.JobRequest{Keyword: "bakery", Location: "Reno", MaxResults: 10})
	if status.State != models.JobFinished {
		t.Fatalf("Expected finished job, got %s (%s)", status.State, status.Error)
	}
	if status.Stats.Discovered != 3 || status.Stats.Processed != 3 || status.Stats.Emails != 1 {
		t.Errorf("Unexpected stats %+v", status.Stats)
	}
	if harv.count() != 2 {
		t.Errorf("Expected 2 harvests (no website for Bakery #3), got %d", harv.count())
	}

	leads, err := db.Results(context.Background(), models.ResultFilter{})
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("Expected exactly one lead, got %d: %+v", len(leads), leads)
	}
	if leads[0].BusinessName != "Bakery #2" || leads[0].Email != "owner@bakerco.example" {
		t.Errorf("Unexpected lead %+v", leads[0])
	}

	businesses, _, _ := db.Counts(context.Background())
	if businesses != 3 {
		t.Errorf("Expected all 3 businesses stored, got %d", businesses)
	}

	// the export of that state has the fixed header and one row
	reno, _ := db.Results(context.Background(), models.ResultFilter{Location: "Reno"})
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, reno); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and one row, got %d lines", len(lines))
	}
	if lines[0] != "business_name,website,email,email_source_page,city,category" {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Bakery #2,"+two.URL+",owner@bakerco.example,") {
		t.Errorf("Unexpected row %q", lines[1])
	}
}

func TestScheduler_RejectsInvalidJobs(t *testing.T) {
	s := New(&fakeDiscoverer{}, staticHarvester{}, openStore(t), testOptions())

	tests := []models.JobRequest{
		{Keyword: "", Location: "Reno", MaxResults: 10},
		{Keyword: "bakery", Location: "   ", MaxResults: 10},
		{Keyword: "bakery", Location: "Reno", MaxResults: -1},
	}
	for _, req := range tests {
		_, _, err := s.Submit(req)
		if !errs.HasCode(err, errs.CodeValidation) {
			t.Errorf("Submit(%+v): expected VALIDATION error, got %v", req, err)
		}
	}
	if s.QueueLength() != 0 {
		t.Errorf("Expected empty queue, got %d", s.QueueLength())
	}
}

func TestScheduler_SecondIdenticalJobSkips(t *testing.T) {
	disc := &fakeDiscoverer{results: []models.Business{
		{Name: "Bakery #1", Website: "https://one.example"},
		{Name: "Bakery #2", Website: "https://two.example"},
		{Name: "Bakery #3"},
	}}
	harv := &countingHarvester{next: staticHarvester{
		"https://one.example": {"hi@one.example"},
		"https://two.example": {"owner@two.example", "sales@two.example"},
	}}
	db := openStore(t)
	s := New(disc, harv, db, testOptions())
	start(t, s)

	req := models.JobRequest{Keyword: "bakery", Location: "Reno", MaxResults: 10}
	first := runJob(t, s, req)
	if first.Stats.Emails != 3 || harv.count() != 2 {
		t.Fatalf("Unexpected first run: stats %+v, harvests %d", first.Stats, harv.count())
	}

	second := runJob(t, s, req)
	if harv.count() != 2 {
		t.Errorf("Expected no new harvests, got %d", harv.count()-2)
	}
	if second.Stats.Skipped != 2 || second.Stats.Emails != 0 {
		t.Errorf("Unexpected second run stats %+v", second.Stats)
	}

	_, emails, _ := db.Counts(context.Background())
	if emails != 3 {
		t.Errorf("Expected email count to stay at 3, got %d", emails)
	}
}

func TestScheduler_ReharvestsBusinessWithoutEmails(t *testing.T) {
	disc := &fakeDiscoverer{results: []models.Business{{Name: "Quiet Bakery", Website: "https://quiet.example"}}}
	harv := &countingHarvester{next: staticHarvester{}}
	s := New(disc, harv, openStore(t), testOptions())
	start(t, s)

	req := models.JobRequest{Keyword: "bakery", Location: "Reno"}
	runJob(t, s, req)
	runJob(t, s, req)
	if harv.count() != 2 {
		t.Errorf("Expected a business without emails to be harvested again, got %d harvests", harv.count())
	}
}

func TestScheduler_DiscoveryFailureDropsJob(t *testing.T) {
	disc := &fakeDiscoverer{err: errs.Blocked("https://www.google.com/sorry/index")}
	s := New(disc, staticHarvester{}, openStore(t), testOptions())
	start(t, s)

	status := runJob(t, s, models.JobRequest{Keyword: "bakery", Location: "Reno"})
	if status.State != models.JobFailed || status.Error == "" {
		t.Errorf("Expected failed job with error, got %+v", status)
	}

	disc.mu.Lock()
	disc.err = nil
	disc.mu.Unlock()
	next := runJob(t, s, models.JobRequest{Keyword: "cafe", Location: "Reno"})
	if next.State != models.JobFinished {
		t.Errorf("Expected queue to continue after a failed job, got %s", next.State)
	}
}

func TestScheduler_BusinessFailureIsContained(t *testing.T) {
	disc := &fakeDiscoverer{results: []models.Business{
		{Name: "Broken Bakery", Website: "https://broken.example"},
		{Name: "Good Bakery", Website: "https://good.example"},
	}}
	harv := &countingHarvester{
		next:  staticHarvester{"https://good.example": {"owner@good.example"}},
		panic: "https://broken.example",
	}
	s := New(disc, harv, openStore(t), testOptions())
	start(t, s)

	status := runJob(t, s, models.JobRequest{Keyword: "bakery", Location: "Reno"})
	if status.State != models.JobFinished {
		t.Fatalf("Expected finished job, got %s", status.State)
	}
	if status.Stats.Errors != 1 || status.Stats.Emails != 1 || status.Stats.Processed != 2 {
		t.Errorf("Unexpected stats %+v", status.Stats)
	}
}

func TestScheduler_RunsOneJobAtATime(t *testing.T) {
	disc := &fakeDiscoverer{block: make(chan struct{})}
	s := New(disc, staticHarvester{}, openStore(t), testOptions())
	start(t, s)

	first, _, _ := s.Submit(models.JobRequest{Keyword: "a", Location: "Reno"})
	second, pos, _ := s.Submit(models.JobRequest{Keyword: "b", Location: "Reno"})

	deadline := time.Now().Add(5 * time.Second)
	for s.State() != StateProcessing && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != StateProcessing {
		t.Fatal("Expected worker to be processing")
	}
	if got := second.Status().State; got != models.JobQueued {
		t.Errorf("Expected second job to wait, got %s", got)
	}
	if pos < 1 {
		t.Errorf("Expected a queue position, got %d", pos)
	}

	close(disc.block)
	wait(t, first)
	wait(t, second)

	disc.mu.Lock()
	calls := disc.calls
	disc.mu.Unlock()
	if calls != 2 {
		t.Errorf("Expected 2 discoveries, got %d", calls)
	}
}

func TestScheduler_QueuePosition(t *testing.T) {
	s := New(&fakeDiscoverer{}, staticHarvester{}, openStore(t), testOptions())
	for want := 1; want <= 3; want++ {
		_, pos, err := s.Submit(models.JobRequest{Keyword: "a", Location: "Reno"})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if pos != want {
			t.Errorf("Expected position %d, got %d", want, pos)
		}
	}

	// an idle worker may take the job before Submit returns
	for i := 0; i < 20; i++ {
		disc := &fakeDiscoverer{block: make(chan struct{})}
		s := New(disc, staticHarvester{}, openStore(t), testOptions())
		start(t, s)

		job, pos, err := s.Submit(models.JobRequest{Keyword: "a", Location: "Reno"})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if pos != 1 {
			t.Errorf("Expected position 1 on an idle scheduler, got %d", pos)
		}
		close(disc.block)
		wait(t, job)
	}
}

func TestScheduler_QueueFull(t *testing.T) {
	s := New(&fakeDiscoverer{}, staticHarvester{}, openStore(t), Options{Capacity: 1})

	if _, _, err := s.Submit(models.JobRequest{Keyword: "a", Location: "b"}); err != nil {
		t.Fatalf("First submit failed: %v", err)
	}
	_, _, err := s.Submit(models.JobRequest{Keyword: "a", Location: "b"})
	if !errs.HasCode(err, errs.CodeQueueFull) {
		t.Errorf("Expected QUEUE_FULL, got %v", err)
	}
}

func TestScheduler_JobLookupAndListeners(t *testing.T) {
	disc := &fakeDiscoverer{results: []models.Business{{Name: "Solo Bakery"}}}
	s := New(disc, staticHarvester{}, openStore(t), testOptions())

	var mu sync.Mutex
	var states []models.JobState
	unsubscribe := s.Subscribe(func(st models.JobStatus) {
		mu.Lock()
		states = append(states, st.State)
		mu.Unlock()
	})
	defer unsubscribe()
	start(t, s)

	job, _, _ := s.Submit(models.JobRequest{Keyword: "bakery", Location: "Reno"})
	wait(t, job)

	got, err := s.Job(job.ID())
	if err != nil || got.State != models.JobFinished {
		t.Errorf("Job lookup = %+v, %v", got, err)
	}
	if _, err := s.Job("missing"); !errors.Is(err, errs.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) == 0 || states[len(states)-1] != models.JobFinished {
		t.Errorf("Expected final event to be finished, got %v", states)
	}
}

func TestScheduler_ClosedRejectsSubmissions(t *testing.T) {
	s := New(&fakeDiscoverer{}, staticHarvester{}, openStore(t), testOptions())
	s.Close()
	if _, _, err := s.Submit(models.JobRequest{Keyword: "a", Location: "b"}); !errors.Is(err, errs.ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
}

func TestScheduler_ShutdownFailsQueuedJobs(t *testing.T) {
	disc := &fakeDiscoverer{block: make(chan struct{})}
	s := New(disc, staticHarvester{}, openStore(t), testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	first, _, _ := s.Submit(models.JobRequest{Keyword: "a", Location: "b"})
	second, _, _ := s.Submit(models.JobRequest{Keyword: "c", Location: "d"})
	cancel()
	<-done

	if st := wait(t, first); st.State != models.JobFailed {
		t.Errorf("Expected first job failed on shutdown, got %s", st.State)
	}
	if st := wait(t, second); st.State != models.JobFailed {
		t.Errorf("Expected queued job failed on shutdown, got %s", st.State)
	}
}
