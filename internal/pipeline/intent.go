package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mkobayashi/jobscout/internal/ai"
	"github.com/mkobayashi/jobscout/internal/utils"
)

// ErrEmptyQuery is returned when a search is started without any query text.
var ErrEmptyQuery = errors.New("search query must not be empty")

const defaultMaxLogLength = 200

// gatewayCaller is the slice of the AI gateway the pipeline stages consume.
type gatewayCaller interface {
	Call(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error)
}

// ExplicitConditions are the conditions literally present in the query.
type ExplicitConditions struct {
	Locations []string `json:"locations"`
	Skills    []string `json:"skills"`
	MinSalary *int     `json:"min_salary"`
}

// ImplicitConditions are inferred from context rather than stated.
type ImplicitConditions struct {
	Role           *string  `json:"role"`
	EmploymentType []string `json:"employment_type"`
	MinSalary      *int     `json:"min_salary"`
	CompanySize    []string `json:"company_size"`
	MustHave       []string `json:"must_have"`
	NiceToHave     []string `json:"nice_to_have"`
}

// SearchIntent is the structured decomposition of a free-text search query.
type SearchIntent struct {
	Explicit ExplicitConditions `json:"explicit"`
	Implicit ImplicitConditions `json:"implicit"`
	Exclude  []string           `json:"exclude"`
	Summary  string             `json:"search_intent_summary"`
}

// normalize enforces the intent invariants: array fields are never nil,
// optional scalars stay nil when absent.
func (i *SearchIntent) normalize() {
	if i.Explicit.Locations == nil {
		i.Explicit.Locations = []string{}
	}
	if i.Explicit.Skills == nil {
		i.Explicit.Skills = []string{}
	}
	if i.Implicit.EmploymentType == nil {
		i.Implicit.EmploymentType = []string{}
	}
	if i.Implicit.CompanySize == nil {
		i.Implicit.CompanySize = []string{}
	}
	if i.Implicit.MustHave == nil {
		i.Implicit.MustHave = []string{}
	}
	if i.Implicit.NiceToHave == nil {
		i.Implicit.NiceToHave = []string{}
	}
	if i.Exclude == nil {
		i.Exclude = []string{}
	}
}

// Extractor turns a free-text query into a SearchIntent via the AI gateway.
type Extractor struct {
	gateway   gatewayCaller
	logger    *zap.Logger
	maxLogLen int
}

// NewExtractor creates an intent extractor over the given gateway.
func NewExtractor(gateway gatewayCaller, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		gateway:   gateway,
		logger:    logger,
		maxLogLen: defaultMaxLogLength,
	}
}

// Extract analyses the query and returns the structured intent. Transport
// failure (every backend exhausted) propagates to the caller: running a search
// against a silently empty intent would mislead the user. A malformed but
// present response instead degrades field-by-field to the documented defaults.
func (e *Extractor) Extract(ctx context.Context, query string) (*SearchIntent, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	prompt := buildIntentPrompt(query)

	e.logger.Debug("intent extraction request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("query", utils.TruncateForLog(query, e.maxLogLen)),
	)

	raw, err := e.gateway.Call(ctx, prompt, 0.1, 1024)
	if err != nil {
		return nil, fmt.Errorf("extract intent: %w", err)
	}

	e.logger.Debug("intent extraction response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	intent := &SearchIntent{}
	if err := ai.DecodeLoose(raw, intent); err != nil {
		e.logger.Warn("intent response malformed, falling back to defaults",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
		)
		intent = &SearchIntent{}
	}

	intent.normalize()
	if strings.TrimSpace(intent.Summary) == "" {
		intent.Summary = query
	}

	return intent, nil
}
