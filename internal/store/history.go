package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateSearchRecord saves one search for the given user and returns the
// generated record id.
func (s *Store) CreateSearchRecord(ctx context.Context, record *SearchRecord) (string, error) {
	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	conditions := record.Conditions
	if conditions == "" {
		conditions = "{}"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (id, user_id, query, summary, conditions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, record.UserID, record.Query, record.Summary, conditions,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("inserting search record: %w", err)
	}

	return id, nil
}

// DeleteOldestSearches prunes the user's history down to the keepCount most
// recent records.
func (s *Store) DeleteOldestSearches(ctx context.Context, userID string, keepCount int) error {
	if keepCount < 0 {
		keepCount = 0
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM search_history
		 WHERE user_id = ?
		   AND id NOT IN (
			SELECT id FROM search_history
			WHERE user_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		 )`,
		userID, userID, keepCount,
	)
	if err != nil {
		return fmt.Errorf("pruning search history for user %q: %w", userID, err)
	}

	return nil
}

// ListSearches returns the user's saved searches, newest first.
func (s *Store) ListSearches(ctx context.Context, userID string) ([]*SearchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, query, summary, conditions, created_at
		 FROM search_history
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying search history: %w", err)
	}
	defer rows.Close()

	var records []*SearchRecord
	for rows.Next() {
		var record SearchRecord
		var createdAt string
		if err := rows.Scan(&record.ID, &record.UserID, &record.Query,
			&record.Summary, &record.Conditions, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning search record: %w", err)
		}
		if record.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at for search %q: %w", record.ID, err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}
