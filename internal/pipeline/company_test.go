package pipeline

import (
	"context"
	"errors"
	"testing"
)

type stubFacet struct {
	name  string
	score *FacetScore
	err   error
}

func (s *stubFacet) Name() string { return s.name }

func (s *stubFacet) Evaluate(context.Context, string, *SearchIntent) (*FacetScore, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.score, nil
}

func TestEvaluateBatchAveragesFacets(t *testing.T) {
	evaluator := NewCompanyEvaluator(nil,
		&stubFacet{name: FacetTechnical, score: &FacetScore{Score: 80}},
		&stubFacet{name: FacetCulture, score: &FacetScore{Score: 60}},
	)

	result := evaluator.EvaluateBatch(context.Background(), []string{"Acme"}, &SearchIntent{})

	evaluation := result["Acme"]
	if evaluation == nil {
		t.Fatal("expected an evaluation for Acme")
	}
	if len(evaluation.Facets) != 2 {
		t.Fatalf("expected both facets, got %d", len(evaluation.Facets))
	}
	if evaluation.OverallScore != 70 {
		t.Fatalf("expected overall mean(80, 60)=70, got %d", evaluation.OverallScore)
	}
}

func TestEvaluateBatchSingleFacetOverallEqualsFacet(t *testing.T) {
	evaluator := NewCompanyEvaluator(nil,
		&stubFacet{name: FacetTechnical, score: &FacetScore{Score: 80}},
	)

	result := evaluator.EvaluateBatch(context.Background(), []string{"Acme"}, &SearchIntent{})

	if got := result["Acme"].OverallScore; got != 80 {
		t.Fatalf("expected overall 80 with a single facet, got %d", got)
	}
}

func TestEvaluateBatchDeduplicatesCompanies(t *testing.T) {
	calls := 0
	facet := &countingFacet{stubFacet: stubFacet{name: FacetTechnical, score: &FacetScore{Score: 75}}, calls: &calls}
	evaluator := NewCompanyEvaluator(nil, facet)

	result := evaluator.EvaluateBatch(context.Background(), []string{"Acme", "Beta", "Acme", ""}, &SearchIntent{})

	if len(result) != 2 {
		t.Fatalf("expected 2 distinct companies, got %d", len(result))
	}
	if calls != 2 {
		t.Fatalf("expected one facet call per distinct company, got %d", calls)
	}
	if _, ok := result[""]; ok {
		t.Fatal("empty company names must be skipped")
	}
}

type countingFacet struct {
	stubFacet
	calls *int
}

func (c *countingFacet) Evaluate(ctx context.Context, name string, intent *SearchIntent) (*FacetScore, error) {
	*c.calls++
	return c.stubFacet.Evaluate(ctx, name, intent)
}

func TestEvaluateBatchOmitsFailedFacet(t *testing.T) {
	evaluator := NewCompanyEvaluator(nil,
		&stubFacet{name: FacetTechnical, err: errors.New("backend down")},
		&stubFacet{name: FacetCulture, score: &FacetScore{Score: 90}},
	)

	evaluation := evaluator.EvaluateBatch(context.Background(), []string{"Acme"}, &SearchIntent{})["Acme"]

	if _, ok := evaluation.Facets[FacetTechnical]; ok {
		t.Fatal("a failed facet must be absent, not zero")
	}
	if evaluation.OverallScore != 90 {
		t.Fatalf("failed facet must not drag down the mean, got %d", evaluation.OverallScore)
	}
}

func TestEvaluateBatchAllFacetsFailed(t *testing.T) {
	evaluator := NewCompanyEvaluator(nil,
		&stubFacet{name: FacetTechnical, err: errors.New("down")},
	)

	evaluation := evaluator.EvaluateBatch(context.Background(), []string{"Acme"}, &SearchIntent{})["Acme"]

	if len(evaluation.Facets) != 0 || evaluation.OverallScore != 0 {
		t.Fatalf("expected an empty evaluation, got %+v", evaluation)
	}
}

func TestGatewayFacetParsesAndClamps(t *testing.T) {
	gateway := &fakeGateway{handler: func(string) (string, error) {
		return "```json\n" + `{"score": 150, "summary": "強い技術文化"}` + "\n```", nil
	}}

	score, err := NewTechnicalFacet(gateway).Evaluate(context.Background(), "Acme", &SearchIntent{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if score.Score != 100 {
		t.Fatalf("expected score clamped to 100, got %d", score.Score)
	}
	if score.Summary != "強い技術文化" {
		t.Fatalf("unexpected summary: %q", score.Summary)
	}
	if score.Highlights == nil || score.Concerns == nil {
		t.Fatal("highlights and concerns must never be nil")
	}
}
