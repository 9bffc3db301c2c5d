package pipeline

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkobayashi/jobscout/internal/ai"
	"github.com/mkobayashi/jobscout/internal/utils"
)

const defaultMaxCandidates = 5

// CompanyRef is the loose by-name company reference carried by a candidate.
type CompanyRef struct {
	Name string `json:"name"`
}

// JobCandidate is a job posting proposed by the Generator. The enrichment
// fields are filled in by the Verifier and the CompanyEvaluator; a candidate
// lives for one search invocation only and is never persisted.
type JobCandidate struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Company     CompanyRef `json:"company"`
	Location    string     `json:"location"`
	SalaryMin   int        `json:"salary_min"`
	SalaryMax   int        `json:"salary_max"`
	Skills      []string   `json:"skills"`
	SourceURL   string     `json:"source_url"`
	Description string     `json:"description"`

	Confidence        int                `json:"confidence"`
	MatchScore        int                `json:"match_score"`
	IsMatch           bool               `json:"is_match"`
	MatchReasons      []string           `json:"match_reasons"`
	CompanyEvaluation *CompanyEvaluation `json:"company_evaluation,omitempty"`
}

// Generator produces job candidates for an intent through a grounded model
// call.
type Generator struct {
	gateway       gatewayCaller
	logger        *zap.Logger
	maxCandidates int
	maxLogLen     int
}

// NewGenerator creates a candidate generator over the given gateway.
// maxCandidates bounds the requested result count; zero means the default.
func NewGenerator(gateway gatewayCaller, logger *zap.Logger, maxCandidates int) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}

	return &Generator{
		gateway:       gateway,
		logger:        logger,
		maxCandidates: maxCandidates,
		maxLogLen:     defaultMaxLogLength,
	}
}

// Generate renders the intent into a composite query and asks the gateway for
// a bounded list of structured job results. Transport and parse failures are
// absorbed here: the pipeline continues in degraded mode with zero candidates.
func (g *Generator) Generate(ctx context.Context, intent *SearchIntent) []*JobCandidate {
	if intent == nil {
		return nil
	}

	prompt := buildCandidatesPrompt(intent, g.maxCandidates)

	g.logger.Debug("candidate generation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("query", utils.TruncateForLog(groundingQuery(intent), g.maxLogLen)),
	)

	raw, err := g.gateway.Call(ctx, prompt, 0.4, 4096)
	if err != nil {
		g.logger.Warn("candidate generation degraded to empty result",
			zap.Error(err),
		)
		return nil
	}

	var parsed []*JobCandidate
	if err := ai.DecodeLoose(raw, &parsed); err != nil {
		g.logger.Warn("candidate response malformed, degrading to empty result",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, g.maxLogLen)),
		)
		return nil
	}

	candidates := make([]*JobCandidate, 0, g.maxCandidates)
	for _, candidate := range parsed {
		if candidate == nil {
			continue
		}
		if strings.TrimSpace(candidate.Title) == "" && strings.TrimSpace(candidate.Company.Name) == "" {
			continue
		}
		if strings.TrimSpace(candidate.ID) == "" {
			candidate.ID = uuid.NewString()
		}
		if candidate.Skills == nil {
			candidate.Skills = []string{}
		}

		candidates = append(candidates, candidate)
		if len(candidates) == g.maxCandidates {
			break
		}
	}

	g.logger.Info("candidates generated", zap.Int("count", len(candidates)))

	return candidates
}
