package pipeline

import (
	"context"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mkobayashi/jobscout/internal/ai"
)

// Facet names used by the built-in evaluators.
const (
	FacetTechnical = "technical"
	FacetCulture   = "culture"
)

// FacetScore is the outcome of one evaluation axis for one company.
type FacetScore struct {
	Score      int      `json:"score"`
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
	Concerns   []string `json:"concerns"`
}

// CompanyEvaluation aggregates the facet scores of one company. OverallScore
// is always derived from the present facets, never model-generated.
type CompanyEvaluation struct {
	Facets       map[string]*FacetScore `json:"facets"`
	OverallScore int                    `json:"overall_score"`
}

// Facet is one independent evaluation axis. Implementations must not share
// mutable state: facets for one company run concurrently.
type Facet interface {
	Name() string
	Evaluate(ctx context.Context, companyName string, intent *SearchIntent) (*FacetScore, error)
}

// gatewayFacet evaluates one axis through a prompt template and a gateway.
// Different facets may be wired to different gateways (and so to different
// backend families).
type gatewayFacet struct {
	name     string
	template string
	gateway  gatewayCaller
}

// NewTechnicalFacet evaluates a company's technical quality.
func NewTechnicalFacet(gateway gatewayCaller) Facet {
	return &gatewayFacet{name: FacetTechnical, template: facetTechnicalTemplate, gateway: gateway}
}

// NewCultureFacet evaluates a company's culture and work-life balance.
func NewCultureFacet(gateway gatewayCaller) Facet {
	return &gatewayFacet{name: FacetCulture, template: facetCultureTemplate, gateway: gateway}
}

func (f *gatewayFacet) Name() string { return f.name }

func (f *gatewayFacet) Evaluate(ctx context.Context, companyName string, intent *SearchIntent) (*FacetScore, error) {
	prompt := buildFacetPrompt(f.template, companyName, intent)

	raw, err := f.gateway.Call(ctx, prompt, 0.3, 2048)
	if err != nil {
		return nil, err
	}

	var score FacetScore
	if err := ai.DecodeLoose(raw, &score); err != nil {
		return nil, err
	}

	if score.Score < 0 {
		score.Score = 0
	}
	if score.Score > 100 {
		score.Score = 100
	}
	if score.Highlights == nil {
		score.Highlights = []string{}
	}
	if score.Concerns == nil {
		score.Concerns = []string{}
	}

	return &score, nil
}

// CompanyEvaluator runs the configured facets over a batch of companies.
// The system works with any non-zero subset of facets; a deployment may
// disable one entirely.
type CompanyEvaluator struct {
	facets []Facet
	logger *zap.Logger
}

// NewCompanyEvaluator creates an evaluator over the given facets.
func NewCompanyEvaluator(logger *zap.Logger, facets ...Facet) *CompanyEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CompanyEvaluator{facets: facets, logger: logger}
}

// EvaluateBatch evaluates every distinct company once, preserving first-seen
// order for deterministic logging. A failed facet is simply absent from the
// result; it never zeroes the mean and never fails the batch.
func (e *CompanyEvaluator) EvaluateBatch(ctx context.Context, companyNames []string, intent *SearchIntent) map[string]*CompanyEvaluation {
	result := make(map[string]*CompanyEvaluation, len(companyNames))

	for _, name := range dedupeNames(companyNames) {
		result[name] = e.evaluateCompany(ctx, name, intent)
	}

	return result
}

// evaluateCompany runs all facets for one company in parallel and joins
// before computing the overall score.
func (e *CompanyEvaluator) evaluateCompany(ctx context.Context, companyName string, intent *SearchIntent) *CompanyEvaluation {
	scores := make([]*FacetScore, len(e.facets))

	g, groupCtx := errgroup.WithContext(ctx)
	for i, facet := range e.facets {
		g.Go(func() error {
			score, err := facet.Evaluate(groupCtx, companyName, intent)
			if err != nil {
				e.logger.Warn("company facet evaluation failed",
					zap.String("company", companyName),
					zap.String("facet", facet.Name()),
					zap.Error(err),
				)
				return nil
			}
			scores[i] = score
			return nil
		})
	}
	g.Wait()

	evaluation := &CompanyEvaluation{Facets: make(map[string]*FacetScore, len(e.facets))}
	for i, facet := range e.facets {
		if scores[i] != nil {
			evaluation.Facets[facet.Name()] = scores[i]
		}
	}
	evaluation.OverallScore = overallScore(evaluation.Facets)

	return evaluation
}

// overallScore is the rounded arithmetic mean of the present facet scores;
// zero when no facet succeeded.
func overallScore(facets map[string]*FacetScore) int {
	if len(facets) == 0 {
		return 0
	}

	sum := 0
	for _, facet := range facets {
		sum += facet.Score
	}

	return int(math.Round(float64(sum) / float64(len(facets))))
}

func dedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	distinct := make([]string, 0, len(names))

	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		distinct = append(distinct, name)
	}

	return distinct
}
