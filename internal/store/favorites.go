package store

import (
	"context"
	"fmt"
	"time"
)

// AddFavorite marks the job as saved by the user. Saving twice is not an
// error.
func (s *Store) AddFavorite(ctx context.Context, userID, jobID string) error {
	if _, err := s.FindJob(ctx, jobID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, job_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, job_id) DO NOTHING`,
		userID, jobID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("adding favorite: %w", err)
	}

	return nil
}

// RemoveFavorite deletes the user's favorite. Removing a favorite that does
// not exist returns ErrNotFound.
func (s *Store) RemoveFavorite(ctx context.Context, userID, jobID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = ? AND job_id = ?",
		userID, jobID,
	)
	if err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking removed favorite: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListFavorites returns the user's saved jobs, newest first.
func (s *Store) ListFavorites(ctx context.Context, userID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumnsPrefixed+`
		 FROM favorites f
		 JOIN jobs j ON j.id = f.job_id
		 WHERE f.user_id = ?
		 ORDER BY f.created_at DESC, j.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying favorites: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

const jobColumnsPrefixed = "j.id, j.title, j.company_name, j.location, j.salary_min, j.salary_max, j.skills, j.source_url, j.description, j.created_at"
