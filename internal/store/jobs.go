package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const jobColumns = "id, title, company_name, location, salary_min, salary_max, skills, source_url, description, created_at"

// SearchJobs queries the jobs table by structured filters. Locations match
// any, skills match any, MinSalary is a floor on the posting's lower bound and
// MaxSalary a ceiling on it.
func (s *Store) SearchJobs(ctx context.Context, filters *JobFilters, offset, limit int) (*JobPage, error) {
	if filters == nil {
		filters = &JobFilters{}
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where, args := buildJobFilters(filters)

	var total int
	countQuery := "SELECT COUNT(*) FROM jobs" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting jobs: %w", err)
	}

	query := "SELECT " + jobColumns + " FROM jobs" + where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}

	return &JobPage{Jobs: jobs, Total: total}, nil
}

// FindJob returns the job with the given id, or ErrNotFound.
func (s *Store) FindJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return job, nil
}

// InsertJob persists a posting. Used by importers and tests; the AI pipeline
// never writes here.
func (s *Store) InsertJob(ctx context.Context, job *Job) error {
	skills, err := json.Marshal(job.Skills)
	if err != nil {
		return fmt.Errorf("marshaling skills: %w", err)
	}

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, title, company_name, location, salary_min, salary_max, skills, source_url, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Title, job.CompanyName, job.Location,
		job.SalaryMin, job.SalaryMax, string(skills), job.SourceURL, job.Description,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting job %q: %w", job.ID, err)
	}

	return nil
}

func buildJobFilters(filters *JobFilters) (string, []any) {
	var clauses []string
	var args []any

	if len(filters.Locations) > 0 {
		sub := make([]string, 0, len(filters.Locations))
		for _, location := range filters.Locations {
			sub = append(sub, "location LIKE ?")
			args = append(args, "%"+location+"%")
		}
		clauses = append(clauses, "("+strings.Join(sub, " OR ")+")")
	}

	if len(filters.Skills) > 0 {
		sub := make([]string, 0, len(filters.Skills))
		for _, skill := range filters.Skills {
			sub = append(sub, "skills LIKE ?")
			// Skills are stored as a JSON array of strings.
			args = append(args, `%"`+skill+`"%`)
		}
		clauses = append(clauses, "("+strings.Join(sub, " OR ")+")")
	}

	if filters.MinSalary > 0 {
		clauses = append(clauses, "salary_min >= ?")
		args = append(args, filters.MinSalary)
	}

	if filters.MaxSalary > 0 {
		clauses = append(clauses, "salary_min <= ?")
		args = append(args, filters.MaxSalary)
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var skills, createdAt string

	err := row.Scan(&job.ID, &job.Title, &job.CompanyName, &job.Location,
		&job.SalaryMin, &job.SalaryMax, &skills, &job.SourceURL, &job.Description, &createdAt)
	if err != nil {
		return nil, err
	}

	if job.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for job %q: %w", job.ID, err)
	}

	if err := json.Unmarshal([]byte(skills), &job.Skills); err != nil {
		return nil, fmt.Errorf("unmarshaling skills for job %q: %w", job.ID, err)
	}

	return &job, nil
}
