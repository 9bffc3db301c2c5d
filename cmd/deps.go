package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mkobayashi/jobscout/internal/ai"
	"github.com/mkobayashi/jobscout/internal/ai/gemini"
	"github.com/mkobayashi/jobscout/internal/pipeline"
	"github.com/mkobayashi/jobscout/internal/secrets"
	"github.com/mkobayashi/jobscout/internal/store"
)

var defaultGeminiModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}

// newGateway builds the AI gateway: one Gemini backend per configured model,
// tried in order.
func newGateway(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*ai.Gateway, error) {
	if cfg == nil {
		cfg = &AIConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	geminiCfg := cfg.Gemini
	if geminiCfg == nil {
		geminiCfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: geminiCfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	models := geminiCfg.Models
	if len(models) == 0 {
		models = defaultGeminiModels
	}

	backends := make([]ai.Backend, 0, len(models))
	for _, model := range models {
		backends = append(backends, client.Backend(model))
	}

	gatewayCfg := &ai.GatewayConfig{
		CallTimeout:      geminiCfg.CallTimeout,
		RateLimitRetries: geminiCfg.RateLimitRetries,
	}

	return ai.NewGateway(gatewayCfg, logger.With(zap.String("provider", "gemini")), backends...), nil
}

// newOrchestrator wires the pipeline stages over one shared gateway and the
// job store.
func newOrchestrator(gateway *ai.Gateway, st *store.Store, cfg *AIConfig, logger *zap.Logger) *pipeline.Orchestrator {
	if cfg == nil {
		cfg = &AIConfig{}
	}

	verifierCfg := &pipeline.VerifierConfig{
		VoteDelay:      cfg.VoteDelay,
		CandidateDelay: cfg.CandidateDelay,
	}

	var facets []pipeline.Facet
	if cfg.Facets == nil || cfg.Facets.Technical {
		facets = append(facets, pipeline.NewTechnicalFacet(gateway))
	}
	if cfg.Facets == nil || cfg.Facets.Culture {
		facets = append(facets, pipeline.NewCultureFacet(gateway))
	}

	deps := pipeline.Deps{
		Extractor: pipeline.NewExtractor(gateway, logger),
		Generator: pipeline.NewGenerator(gateway, logger, cfg.MaxCandidates),
		Verifier:  pipeline.NewVerifier(gateway, logger, verifierCfg),
		Evaluator: pipeline.NewCompanyEvaluator(logger, facets...),
		Logger:    logger,
	}
	if st != nil {
		deps.Jobs = st
		deps.History = st
	}

	return pipeline.NewOrchestrator(deps)
}
