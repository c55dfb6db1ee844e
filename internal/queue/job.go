package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/law-makers/leadharvest/pkg/models"
)

// Job is one submitted scrape. Its status is safe to read from any goroutine.
type Job struct {
	mu     sync.RWMutex
	status models.JobStatus
	err    error
	done   chan struct{}
}

func newJob(req models.JobRequest) *Job {
	return &Job{
		status: models.JobStatus{
			ID:         uuid.NewString(),
			Keyword:    req.Keyword,
			Location:   req.Location,
			MaxResults: req.MaxResults,
			State:      models.JobQueued,
			CreatedAt:  time.Now().UTC(),
		},
		done: make(chan struct{}),
	}
}

// ID returns the job's identifier
func (j *Job) ID() string {
	return j.status.ID
}

// Status returns a snapshot of the job
func (j *Job) Status() models.JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Err returns the cause of a failed job
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// Done is closed once the job reached a terminal state
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) request() models.JobRequest {
	return models.JobRequest{
		Keyword:    j.status.Keyword,
		Location:   j.status.Location,
		MaxResults: j.status.MaxResults,
	}
}

func (j *Job) start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now().UTC()
	j.status.State = models.JobRunning
	j.status.StartedAt = &now
}

func (j *Job) update(fn func(*models.JobStats)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.status.Stats)
}

// finish moves the job to its terminal state; later calls are ignored.
// Done is closed separately by release.
func (j *Job) finish(err error) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.State.Terminal() {
		return false
	}
	now := time.Now().UTC()
	j.status.FinishedAt = &now
	if err != nil {
		j.err = err
		j.status.State = models.JobFailed
		j.status.Error = err.Error()
	} else {
		j.status.State = models.JobFinished
	}
	return true
}

func (j *Job) release() {
	close(j.done)
}
