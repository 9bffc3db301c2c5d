package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Job is a posting persisted in the job store, served by the plain search
// path. AI-generated candidates are never written here.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CompanyName string    `json:"company_name"`
	Location    string    `json:"location"`
	SalaryMin   int       `json:"salary_min"`
	SalaryMax   int       `json:"salary_max"`
	Skills      []string  `json:"skills"`
	SourceURL   string    `json:"source_url"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// JobPage is one page of job search results.
type JobPage struct {
	Jobs  []*Job `json:"jobs"`
	Total int    `json:"total"`
}

// JobFilters are the structured conditions understood by the plain search
// path. Zero values mean "no constraint".
type JobFilters struct {
	Locations []string `json:"locations,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	MinSalary int      `json:"min_salary,omitempty"`
	MaxSalary int      `json:"max_salary,omitempty"`
}

// SearchRecord is one saved search of an authenticated user.
type SearchRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Query      string    `json:"query"`
	Summary    string    `json:"summary"`
	Conditions string    `json:"conditions"`
	CreatedAt  time.Time `json:"created_at"`
}

// Favorite marks a job saved by a user.
type Favorite struct {
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
}
