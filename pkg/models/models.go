package models

import (
	"strings"
	"time"
)

// DefaultMaxResults is applied when a job request does not set a limit.
const DefaultMaxResults = 50

// PageData represents a rendered page handed to the email extractor
type PageData struct {
	URL          string    `json:"url"`
	StatusCode   int       `json:"status_code"`
	Title        string    `json:"title,omitempty"`
	HTML         string    `json:"html,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	ResponseTime int64     `json:"response_time_ms"`
}

// RendererMode selects how candidate pages are loaded during harvesting
type RendererMode string

const (
	ModeChrome RendererMode = "chrome"
	ModeStatic RendererMode = "static"
)

// Business is a single listing discovered on the map service
type Business struct {
	ID        int64     `json:"id,omitempty"`
	Name      string    `json:"business_name"`
	Website   string    `json:"website,omitempty"`
	Category  string    `json:"category,omitempty"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Location  string    `json:"city,omitempty"`
	Keyword   string    `json:"keyword,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// BusinessKey is the identity of a business across jobs
type BusinessKey struct {
	Name     string
	Website  string
	Location string
}

// Key returns the identity key of b. A missing website is keyed as "".
func (b Business) Key() BusinessKey {
	return BusinessKey{
		Name:     b.Name,
		Website:  strings.TrimSpace(b.Website),
		Location: b.Location,
	}
}

// Email is a harvested contact address attached to a business
type Email struct {
	ID         int64     `json:"id,omitempty"`
	BusinessID int64     `json:"business_id,omitempty"`
	Email      string    `json:"email"`
	SourcePage string    `json:"source_page"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Lead is one row of the business x email result set
type Lead struct {
	BusinessName    string    `json:"business_name"`
	Website         string    `json:"website"`
	Email           string    `json:"email"`
	EmailSourcePage string    `json:"email_source_page"`
	City            string    `json:"city"`
	Category        string    `json:"category"`
	Keyword         string    `json:"keyword"`
	Address         string    `json:"address,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ResultFilter narrows result queries. Empty fields match everything.
type ResultFilter struct {
	Keyword  string
	Location string
}

// JobRequest is what a caller submits to the scheduler
type JobRequest struct {
	Keyword    string `json:"keyword"`
	Location   string `json:"location"`
	MaxResults int    `json:"maxResults"`
}

// JobState is the lifecycle state of a scrape job
type JobState string

const (
	JobQueued   JobState = "queued"
	JobRunning  JobState = "running"
	JobFinished JobState = "finished"
	JobFailed   JobState = "failed"
)

// Terminal reports whether the job will not change state again
func (s JobState) Terminal() bool {
	return s == JobFinished || s == JobFailed
}

// JobStats counts what happened while a job ran
type JobStats struct {
	Discovered int `json:"discovered"`
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	Harvested  int `json:"harvested"`
	Emails     int `json:"emails"`
	Errors     int `json:"errors"`
}

// JobStatus is a point-in-time snapshot of a job
type JobStatus struct {
	ID         string     `json:"id"`
	Keyword    string     `json:"keyword"`
	Location   string     `json:"location"`
	MaxResults int        `json:"maxResults"`
	State      JobState   `json:"state"`
	Stats      JobStats   `json:"stats"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
