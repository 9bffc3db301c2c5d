package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func seedJobs(t *testing.T, s *Store, jobs ...*Job) {
	t.Helper()

	for _, job := range jobs {
		if err := s.InsertJob(context.Background(), job); err != nil {
			t.Fatalf("seeding job %q: %v", job.ID, err)
		}
	}
}

func TestSearchJobsByFilters(t *testing.T) {
	s := openTestStore(t)
	seedJobs(t, s,
		&Job{ID: "j1", Title: "Senior React Engineer", CompanyName: "SmartHR", Location: "東京都港区", SalaryMin: 8000000, SalaryMax: 12000000, Skills: []string{"React", "TypeScript"}},
		&Job{ID: "j2", Title: "Backend Engineer", CompanyName: "Mercari", Location: "東京都", SalaryMin: 9000000, SalaryMax: 15000000, Skills: []string{"Go", "Kubernetes"}},
		&Job{ID: "j3", Title: "Web Engineer", CompanyName: "Umeda Soft", Location: "大阪府", SalaryMin: 5000000, SalaryMax: 8000000, Skills: []string{"React", "Vue.js"}},
	)

	page, err := s.SearchJobs(context.Background(), &JobFilters{
		Locations: []string{"東京"},
		Skills:    []string{"React"},
		MinSalary: 7000000,
	}, 0, 20)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if page.Total != 1 {
		t.Fatalf("expected total 1, got %d", page.Total)
	}
	if len(page.Jobs) != 1 || page.Jobs[0].ID != "j1" {
		t.Fatalf("unexpected result: %+v", page.Jobs)
	}
	if len(page.Jobs[0].Skills) != 2 {
		t.Fatalf("skills not round-tripped: %v", page.Jobs[0].Skills)
	}
}

func TestSearchJobsNoFiltersReturnsEverything(t *testing.T) {
	s := openTestStore(t)
	for i := range 5 {
		seedJobs(t, s, &Job{ID: fmt.Sprintf("j%d", i), Title: "Engineer", CompanyName: "Acme"})
	}

	page, err := s.SearchJobs(context.Background(), nil, 0, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if page.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Total)
	}
	if len(page.Jobs) != 3 {
		t.Fatalf("expected page of 3, got %d", len(page.Jobs))
	}
}

func TestFindJobNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.FindJob(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchHistoryRetention(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := range 12 {
		if _, err := s.CreateSearchRecord(ctx, &SearchRecord{
			ID:     fmt.Sprintf("rec-%02d", i),
			UserID: "user-1",
			Query:  fmt.Sprintf("query %d", i),
		}); err != nil {
			t.Fatalf("creating record: %v", err)
		}
	}
	if _, err := s.CreateSearchRecord(ctx, &SearchRecord{UserID: "user-2", Query: "other user"}); err != nil {
		t.Fatalf("creating record: %v", err)
	}

	if err := s.DeleteOldestSearches(ctx, "user-1", 10); err != nil {
		t.Fatalf("pruning: %v", err)
	}

	records, err := s.ListSearches(ctx, "user-1")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(records) != 10 {
		t.Fatalf("expected 10 records after pruning, got %d", len(records))
	}
	// Newest records survive.
	if records[0].ID != "rec-11" {
		t.Fatalf("expected newest record first, got %q", records[0].ID)
	}

	other, err := s.ListSearches(ctx, "user-2")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("pruning must not touch other users, got %d records", len(other))
	}
}

func TestFavoritesLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedJobs(t, s, &Job{ID: "j1", Title: "Engineer", CompanyName: "Acme", Skills: []string{"Go"}})

	if err := s.AddFavorite(ctx, "user-1", "j1"); err != nil {
		t.Fatalf("adding favorite: %v", err)
	}
	// Saving twice is idempotent.
	if err := s.AddFavorite(ctx, "user-1", "j1"); err != nil {
		t.Fatalf("re-adding favorite: %v", err)
	}

	if err := s.AddFavorite(ctx, "user-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing job, got %v", err)
	}

	jobs, err := s.ListFavorites(ctx, "user-1")
	if err != nil {
		t.Fatalf("listing favorites: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "j1" {
		t.Fatalf("unexpected favorites: %+v", jobs)
	}

	if err := s.RemoveFavorite(ctx, "user-1", "j1"); err != nil {
		t.Fatalf("removing favorite: %v", err)
	}
	if err := s.RemoveFavorite(ctx, "user-1", "j1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double removal, got %v", err)
	}
}
