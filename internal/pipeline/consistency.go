package pipeline

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mkobayashi/jobscout/internal/ai"
	"github.com/mkobayashi/jobscout/internal/utils"
)

const (
	// A vote counts as a match at this score or above.
	voteMatchThreshold = 70
	votesPerCandidate  = 3

	defaultVoteDelay      = 2 * time.Second
	defaultCandidateDelay = 4 * time.Second
)

// Pacer spaces out backend calls. Tests inject a zero-delay pacer.
type Pacer func(ctx context.Context, d time.Duration) error

// vote is the outcome of one independent verification pass.
type vote struct {
	Score   int
	IsMatch bool
	Reason  string
	Failed  bool
}

// votePayload is the structured shape requested from the backend.
type votePayload struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// VerifierConfig tunes the pacing of verification calls.
type VerifierConfig struct {
	// VoteDelay is waited between the three passes of one candidate.
	VoteDelay time.Duration
	// CandidateDelay is waited between candidates.
	CandidateDelay time.Duration
	// Pacer performs the waiting; defaults to a context-aware sleep.
	Pacer Pacer
}

// Verifier re-judges candidates against the intent with three structurally
// distinct passes and reduces the votes by majority into a confidence and
// match decision.
type Verifier struct {
	gateway        gatewayCaller
	logger         *zap.Logger
	voteDelay      time.Duration
	candidateDelay time.Duration
	pacer          Pacer
	maxLogLen      int
}

// NewVerifier creates a consistency verifier over the given gateway. Zero
// config fields fall back to defaults.
func NewVerifier(gateway gatewayCaller, logger *zap.Logger, cfg *VerifierConfig) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	resolved := VerifierConfig{}
	if cfg != nil {
		resolved = *cfg
	}
	if resolved.VoteDelay <= 0 {
		resolved.VoteDelay = defaultVoteDelay
	}
	if resolved.CandidateDelay <= 0 {
		resolved.CandidateDelay = defaultCandidateDelay
	}
	if resolved.Pacer == nil {
		resolved.Pacer = utils.WaitFor
	}

	return &Verifier{
		gateway:        gateway,
		logger:         logger,
		voteDelay:      resolved.VoteDelay,
		candidateDelay: resolved.CandidateDelay,
		pacer:          resolved.Pacer,
		maxLogLen:      defaultMaxLogLength,
	}
}

// Verify annotates every candidate with confidence, match score and reasons,
// then returns only the matches, best score first. Candidates are processed
// in generation order with deliberate pacing so the backend quota is not
// tripped; a cancelled context stops the remaining work.
func (v *Verifier) Verify(ctx context.Context, candidates []*JobCandidate, intent *SearchIntent) []*JobCandidate {
	initial := len(candidates)
	matches := make([]*JobCandidate, 0, initial)

	for i, candidate := range candidates {
		if i > 0 {
			if err := v.pacer(ctx, v.candidateDelay); err != nil {
				v.logger.Warn("verification interrupted", zap.Error(err), zap.Int("verified", i))
				break
			}
		}

		votes := v.judge(ctx, candidate, intent)
		reduceVotes(candidate, votes)

		v.logger.Debug("candidate verified",
			zap.String("candidate_id", candidate.ID),
			zap.Int("confidence", candidate.Confidence),
			zap.Int("match_score", candidate.MatchScore),
			zap.Bool("is_match", candidate.IsMatch),
		)

		if candidate.IsMatch {
			matches = append(matches, candidate)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	v.logger.Info("consistency verification finished",
		zap.Int("initial", initial),
		zap.Int("dropped", initial-len(matches)),
		zap.Int("left", len(matches)),
	)

	return matches
}

// judge runs the three verification passes for one candidate, sequentially
// and with pacing between the calls.
func (v *Verifier) judge(ctx context.Context, candidate *JobCandidate, intent *SearchIntent) []vote {
	templates := []struct {
		name     string
		template string
	}{
		{"direct", voteDirectTemplate},
		{"checklist", voteChecklistTemplate},
		{"adversarial", voteAdversarialTemplate},
	}

	votes := make([]vote, 0, votesPerCandidate)
	for i, pass := range templates {
		if i > 0 {
			if err := v.pacer(ctx, v.voteDelay); err != nil {
				votes = append(votes, vote{Failed: true})
				continue
			}
		}

		votes = append(votes, v.judgeOnce(ctx, pass.name, pass.template, candidate, intent))
	}

	return votes
}

func (v *Verifier) judgeOnce(ctx context.Context, pass, template string, candidate *JobCandidate, intent *SearchIntent) vote {
	prompt := buildVotePrompt(template, candidate, intent)

	raw, err := v.gateway.Call(ctx, prompt, 0.2, 1024)
	if err != nil {
		v.logger.Warn("verification pass failed",
			zap.String("pass", pass),
			zap.String("candidate_id", candidate.ID),
			zap.Error(err),
		)
		return vote{Failed: true}
	}

	var payload votePayload
	if err := ai.DecodeLoose(raw, &payload); err != nil {
		v.logger.Warn("verification response malformed",
			zap.String("pass", pass),
			zap.String("candidate_id", candidate.ID),
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, v.maxLogLen)),
		)
		return vote{Failed: true}
	}

	score := int(math.Round(payload.Score))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return vote{
		Score:   score,
		IsMatch: score >= voteMatchThreshold,
		Reason:  payload.Reason,
	}
}

// reduceVotes folds the votes into the candidate's enrichment fields.
// Confidence is quantized by construction: matchCount out of three votes
// maps onto {0, 33, 67, 100}.
func reduceVotes(candidate *JobCandidate, votes []vote) {
	matchCount := 0
	scoreSum := 0
	failed := 0
	reasons := make([]string, 0, votesPerCandidate)

	for _, v := range votes {
		if v.Failed {
			failed++
			continue
		}
		scoreSum += v.Score
		if v.IsMatch {
			matchCount++
		}
		if v.Reason != "" && len(reasons) < votesPerCandidate {
			reasons = append(reasons, "✅ "+v.Reason)
		}
	}

	total := len(votes)
	if total == 0 {
		total = votesPerCandidate
	}

	candidate.Confidence = int(math.Round(float64(matchCount) / float64(total) * 100))
	candidate.MatchScore = int(math.Round(float64(scoreSum) / float64(total)))
	candidate.IsMatch = matchCount >= (total/2 + 1)
	candidate.MatchReasons = reasons

	if failed == total {
		candidate.Confidence = 0
		candidate.MatchScore = 0
		candidate.IsMatch = false
		candidate.MatchReasons = []string{"検証呼び出しがすべて失敗したため、この求人は評価できませんでした"}
	}
}
