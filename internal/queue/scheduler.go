// Package queue runs scrape jobs one at a time. A single worker drains a
// FIFO channel, so the store only ever sees one writer.
package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/leadharvest/internal/errs"
	"github.com/law-makers/leadharvest/internal/retry"
	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Discoverer finds businesses for a search
type Discoverer interface {
	Discover(ctx context.Context, keyword, location string, maxResults int) ([]models.Business, error)
}

// Harvester collects contact emails from a website
type Harvester interface {
	Harvest(ctx context.Context, website string) []models.Email
}

// Store persists businesses and their emails
type Store interface {
	FindBusiness(ctx context.Context, key models.BusinessKey) (models.Business, bool, error)
	InsertBusiness(ctx context.Context, b models.Business) (int64, error)
	CountEmails(ctx context.Context, businessID int64) (int, error)
	InsertEmail(ctx context.Context, businessID int64, e models.Email) (bool, error)
}

// State is what the worker is doing
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
)

// Options configures a Scheduler
type Options struct {
	Capacity      int           // queued jobs accepted before QUEUE_FULL
	Settle        time.Duration // pause before the next queued job
	BusinessDelay time.Duration // pause between businesses of one job
	History       int           // finished jobs kept for status lookups
}

// DefaultOptions returns the production settings
func DefaultOptions() Options {
	return Options{
		Capacity:      100,
		Settle:        time.Second,
		BusinessDelay: 2 * time.Second,
		History:       50,
	}
}

// Listener receives a job snapshot whenever the job changes
type Listener func(models.JobStatus)

// Scheduler owns the job queue and its single worker
type Scheduler struct {
	discoverer Discoverer
	harvester  Harvester
	store      Store
	opts       Options
	queue      chan *Job

	mu        sync.Mutex
	state     State
	closed    bool
	jobs      map[string]*Job
	order     []string
	listeners map[int]Listener
	nextID    int
}

// New creates a Scheduler. Call Run to start the worker.
func New(d Discoverer, h Harvester, s Store, opts Options) *Scheduler {
	def := DefaultOptions()
	if opts.Capacity <= 0 {
		opts.Capacity = def.Capacity
	}
	if opts.History <= 0 {
		opts.History = def.History
	}
	return &Scheduler{
		discoverer: d,
		harvester:  h,
		store:      s,
		opts:       opts,
		queue:      make(chan *Job, opts.Capacity),
		state:      StateIdle,
		jobs:       make(map[string]*Job),
		listeners:  make(map[int]Listener),
	}
}

// Validate trims req and checks the required fields
func Validate(req models.JobRequest) (models.JobRequest, error) {
	req.Keyword = strings.TrimSpace(req.Keyword)
	req.Location = strings.TrimSpace(req.Location)
	if req.Keyword == "" {
		return req, errs.Validation("keyword is required")
	}
	if req.Location == "" {
		return req, errs.Validation("location is required")
	}
	if req.MaxResults < 0 {
		return req, errs.Validation("maxResults must not be negative, got %d", req.MaxResults)
	}
	return req, nil
}

// Submit validates req and queues it. It returns the job and its position
// among the jobs waiting at submission time (1 is next). The worker may take
// the job before Submit returns; the position never drops below 1.
func (s *Scheduler) Submit(req models.JobRequest) (*Job, int, error) {
	req, err := Validate(req)
	if err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, errs.ErrQueueClosed
	}

	job := newJob(req)
	position := len(s.queue) + 1
	select {
	case s.queue <- job:
	default:
		return nil, 0, errs.New(errs.CodeQueueFull, fmt.Sprintf("queue is full (%d jobs)", cap(s.queue)), nil)
	}
	s.remember(job)

	log.Info().
		Str("job", job.ID()).
		Str("keyword", req.Keyword).
		Str("location", req.Location).
		Int("max_results", req.MaxResults).
		Int("position", position).
		Msg("Job queued")

	return job, position, nil
}

// remember keeps job for lookups, dropping the oldest finished jobs past
// the history limit. Caller holds s.mu.
func (s *Scheduler) remember(job *Job) {
	s.jobs[job.ID()] = job
	s.order = append(s.order, job.ID())

	for len(s.order) > s.opts.History {
		oldest := s.jobs[s.order[0]]
		if oldest != nil && !oldest.Status().State.Terminal() {
			break
		}
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}
}

// Job returns the status of a known job
func (s *Scheduler) Job(id string) (models.JobStatus, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return models.JobStatus{}, errs.New(errs.CodeNotFound, "job "+id+" not found", errs.ErrJobNotFound)
	}
	return job.Status(), nil
}

// Jobs returns the remembered jobs, oldest first
func (s *Scheduler) Jobs() []models.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.JobStatus, 0, len(s.order))
	for _, id := range s.order {
		if job, ok := s.jobs[id]; ok {
			out = append(out, job.Status())
		}
	}
	return out
}

// State returns whether the worker is busy
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueLength returns the number of jobs waiting
func (s *Scheduler) QueueLength() int {
	return len(s.queue)
}

// Subscribe registers fn for job updates and returns a function that
// removes it
func (s *Scheduler) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Scheduler) notify(job *Job) {
	status := job.Status()
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(status)
	}
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Close stops accepting jobs. Jobs already queued still run while Run is
// active.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Run is the worker loop. It processes jobs in submission order until ctx
// ends, then fails whatever is still queued and returns ctx's error.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Debug().Msg("Scheduler worker started")
	defer log.Debug().Msg("Scheduler worker stopped")

	for {
		select {
		case <-ctx.Done():
			s.drain(ctx.Err())
			return ctx.Err()
		case job := <-s.queue:
			s.setState(StateProcessing)
			s.process(ctx, job)
			s.setState(StateIdle)

			if len(s.queue) > 0 {
				retry.Sleep(ctx, s.opts.Settle)
			}
		}
	}
}

func (s *Scheduler) drain(cause error) {
	for {
		select {
		case job := <-s.queue:
			s.complete(job, fmt.Errorf("scheduler stopped: %w", cause))
		default:
			return
		}
	}
}

func (s *Scheduler) process(ctx context.Context, job *Job) {
	req := job.request()
	logger := log.With().Str("job", job.ID()).Str("keyword", req.Keyword).Str("location", req.Location).Logger()

	job.start()
	s.notify(job)
	start := time.Now()
	logger.Info().Msg("Job started")

	businesses, err := s.discoverer.Discover(ctx, req.Keyword, req.Location, req.MaxResults)
	if err != nil {
		logger.Error().Err(err).Msg("Discovery failed, dropping job")
		s.complete(job, err)
		return
	}

	job.update(func(st *models.JobStats) { st.Discovered = len(businesses) })
	s.notify(job)

	for i, b := range businesses {
		if ctx.Err() != nil {
			break
		}

		b.Keyword = req.Keyword
		b.Location = req.Location
		res, err := s.processBusiness(ctx, b)

		job.update(func(st *models.JobStats) {
			st.Processed++
			if err != nil {
				st.Errors++
				return
			}
			if res.skipped {
				st.Skipped++
			}
			if res.harvested {
				st.Harvested++
			}
			st.Emails += res.emails
		})
		if err != nil {
			logger.Warn().Err(err).Str("business", b.Name).Msg("Business failed, continuing")
		}
		s.notify(job)

		if i < len(businesses)-1 {
			retry.Sleep(ctx, s.opts.BusinessDelay)
		}
	}

	var cause error
	if ctx.Err() != nil {
		cause = fmt.Errorf("job interrupted: %w", ctx.Err())
	}
	stats := job.Status().Stats
	logger.Info().
		Int("discovered", stats.Discovered).
		Int("processed", stats.Processed).
		Int("skipped", stats.Skipped).
		Int("emails", stats.Emails).
		Dur("duration", time.Since(start)).
		Msg("Job finished")
	s.complete(job, cause)
}

// complete publishes the terminal status to listeners, then closes Done
func (s *Scheduler) complete(job *Job, err error) {
	if !job.finish(err) {
		return
	}
	s.notify(job)
	job.release()
}

type businessResult struct {
	skipped   bool
	harvested bool
	emails    int
}

// processBusiness stores b and enriches it. A panic is reported as an error
// so one bad record cannot stop the worker.
func (s *Scheduler) processBusiness(ctx context.Context, b models.Business) (res businessResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %q: %v", b.Name, r)
		}
	}()

	key := b.Key()
	existing, found, err := s.store.FindBusiness(ctx, key)
	if err != nil {
		return res, fmt.Errorf("lookup: %w", err)
	}

	var id int64
	if found {
		n, err := s.store.CountEmails(ctx, existing.ID)
		if err != nil {
			return res, fmt.Errorf("count emails: %w", err)
		}
		if n > 0 {
			log.Debug().Str("business", b.Name).Int("emails", n).Msg("Already enriched, skipping")
			res.skipped = true
			return res, nil
		}
		id = existing.ID
	} else {
		b.Website = key.Website
		id, err = s.store.InsertBusiness(ctx, b)
		if err != nil {
			return res, fmt.Errorf("insert business: %w", err)
		}
	}

	if key.Website == "" {
		return res, nil
	}

	res.harvested = true
	for _, e := range s.harvester.Harvest(ctx, key.Website) {
		added, err := s.store.InsertEmail(ctx, id, e)
		if err != nil {
			return res, fmt.Errorf("insert email %s: %w", e.Email, err)
		}
		if added {
			res.emails++
		}
	}
	return res, nil
}
