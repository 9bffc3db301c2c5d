package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mkobayashi/jobscout/internal/logger"
	"github.com/mkobayashi/jobscout/internal/store"
)

// historyRetention is how many searches are kept per user after pruning.
const historyRetention = 10

// JobStore is the slice of the persistence layer used by the plain search
// path.
type JobStore interface {
	SearchJobs(ctx context.Context, filters *store.JobFilters, offset, limit int) (*store.JobPage, error)
}

// HistoryStore receives the best-effort search history side effect.
type HistoryStore interface {
	CreateSearchRecord(ctx context.Context, record *store.SearchRecord) (string, error)
	DeleteOldestSearches(ctx context.Context, userID string, keepCount int) error
}

type intentExtractor interface {
	Extract(ctx context.Context, query string) (*SearchIntent, error)
}

type candidateGenerator interface {
	Generate(ctx context.Context, intent *SearchIntent) []*JobCandidate
}

type consistencyVerifier interface {
	Verify(ctx context.Context, candidates []*JobCandidate, intent *SearchIntent) []*JobCandidate
}

type companyEvaluator interface {
	EvaluateBatch(ctx context.Context, companyNames []string, intent *SearchIntent) map[string]*CompanyEvaluation
}

// SearchResult is the public outcome of the AI search pipeline.
type SearchResult struct {
	Intent     *SearchIntent   `json:"intent"`
	Candidates []*JobCandidate `json:"candidates"`
}

// Deps aggregates the collaborators of the Orchestrator.
type Deps struct {
	Extractor intentExtractor
	Generator candidateGenerator
	Verifier  consistencyVerifier
	Evaluator companyEvaluator
	Jobs      JobStore
	History   HistoryStore
	Logger    *zap.Logger
}

// Orchestrator sequences the search stages: intent extraction, candidate
// generation, consistency verification, company evaluation, merge and sort.
// Each stage runs exactly once per invocation.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Orchestrator{deps: deps}
}

// RunPipeline executes the full AI search for the query. userID may be empty
// for anonymous searches; when set, the search is recorded in the history
// store as a best-effort side effect that never delays or fails the response.
func (o *Orchestrator) RunPipeline(ctx context.Context, query, userID string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	log := o.deps.Logger

	log.Info("starting AI search", zap.String("query", query))

	intent, err := o.deps.Extractor.Extract(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("intent stage: %w", err)
	}
	logger.WithStage(log, "extract_intent", "").Info("intent extracted",
		zap.String("summary", intent.Summary),
	)

	candidates := o.deps.Generator.Generate(ctx, intent)
	logger.WithStage(log, "generate_candidates", "").Info("candidates generated",
		zap.Int("count", len(candidates)),
	)

	verified := o.deps.Verifier.Verify(ctx, candidates, intent)
	logger.WithStage(log, "verify_consistency", "").Info("candidates verified",
		zap.Int("count", len(verified)),
	)

	evaluations := o.deps.Evaluator.EvaluateBatch(ctx, companyNames(verified), intent)
	logger.WithStage(log, "evaluate_companies", "").Info("companies evaluated",
		zap.Int("count", len(evaluations)),
	)

	mergeEvaluations(verified, evaluations)

	sort.SliceStable(verified, func(i, j int) bool {
		return verified[i].Confidence > verified[j].Confidence
	})

	o.saveHistory(ctx, userID, query, intent)

	return &SearchResult{Intent: intent, Candidates: verified}, nil
}

// PlainSearch is the cheap sibling entry point: it queries the job store
// directly by structured filters, skipping every AI stage.
func (o *Orchestrator) PlainSearch(ctx context.Context, filters *store.JobFilters, offset, limit int) (*store.JobPage, error) {
	if o.deps.Jobs == nil {
		return nil, fmt.Errorf("job store is not configured")
	}

	return o.deps.Jobs.SearchJobs(ctx, filters, offset, limit)
}

// FiltersFromIntent derives plain-search filters from the intent's explicit
// conditions only; inferred conditions are an AI-pipeline concern.
func FiltersFromIntent(intent *SearchIntent) *store.JobFilters {
	filters := &store.JobFilters{}
	if intent == nil {
		return filters
	}

	filters.Locations = append(filters.Locations, intent.Explicit.Locations...)
	filters.Skills = append(filters.Skills, intent.Explicit.Skills...)
	if intent.Explicit.MinSalary != nil {
		filters.MinSalary = *intent.Explicit.MinSalary
	}

	return filters
}

// companyNames collects candidate company names in generation order;
// EvaluateBatch deduplicates.
func companyNames(candidates []*JobCandidate) []string {
	names := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		names = append(names, candidate.Company.Name)
	}
	return names
}

// mergeEvaluations attaches each company's evaluation to every candidate
// sharing that name. Candidates of the same company share one evaluation.
func mergeEvaluations(candidates []*JobCandidate, evaluations map[string]*CompanyEvaluation) {
	for _, candidate := range candidates {
		if evaluation, ok := evaluations[candidate.Company.Name]; ok {
			candidate.CompanyEvaluation = evaluation
		}
	}
}

// saveHistory records the search for an authenticated user and prunes old
// records. It runs detached from the request: a failing history store must
// never fail or delay the search response.
func (o *Orchestrator) saveHistory(ctx context.Context, userID, query string, intent *SearchIntent) {
	if userID == "" || o.deps.History == nil {
		return
	}

	log := o.deps.Logger
	detached := context.WithoutCancel(ctx)

	go func() {
		record := &store.SearchRecord{
			UserID:  userID,
			Query:   query,
			Summary: historySummary(intent, query),
		}
		if conditions := marshalForPrompt(intent); conditions != "{}" {
			record.Conditions = conditions
		}

		if _, err := o.deps.History.CreateSearchRecord(detached, record); err != nil {
			log.Warn("saving search history failed", zap.Error(err))
			return
		}

		if err := o.deps.History.DeleteOldestSearches(detached, userID, historyRetention); err != nil {
			log.Warn("pruning search history failed", zap.Error(err))
		}
	}()
}

// historySummary builds the short human-readable line shown in the history
// UI: locations, salary floor and skills when known, otherwise the raw query.
func historySummary(intent *SearchIntent, query string) string {
	if intent == nil {
		return query
	}

	var parts []string
	if len(intent.Explicit.Locations) > 0 {
		parts = append(parts, strings.Join(intent.Explicit.Locations, ", "))
	}
	if salary := firstSalary(intent.Explicit.MinSalary, intent.Implicit.MinSalary); salary > 0 {
		parts = append(parts, fmt.Sprintf(">%d万", salary/10000))
	}
	if len(intent.Explicit.Skills) > 0 {
		parts = append(parts, strings.Join(intent.Explicit.Skills, ", "))
	}

	if len(parts) == 0 {
		return query
	}

	return strings.Join(parts, ", ")
}
