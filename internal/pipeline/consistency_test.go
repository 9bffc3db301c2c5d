package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// scoreByCandidate answers every verification pass for a candidate with the
// same fixed score, routed by the candidate ID embedded in the prompt.
func scoreByCandidate(scores map[string]int) func(string) (string, error) {
	return func(prompt string) (string, error) {
		for id, score := range scores {
			if strings.Contains(prompt, fmt.Sprintf("%q", id)) {
				return fmt.Sprintf(`{"score": %d, "reason": "条件に適合"}`, score), nil
			}
		}
		return "", errors.New("unknown candidate in prompt")
	}
}

func TestVerifyReducesSplitVotes(t *testing.T) {
	scores := []int{80, 60, 75}
	call := 0
	gateway := &fakeGateway{handler: func(string) (string, error) {
		score := scores[call%len(scores)]
		call++
		return fmt.Sprintf(`{"score": %d, "reason": "判定%d"}`, score, call), nil
	}}

	candidates := []*JobCandidate{{ID: "c1", Title: "Engineer", Company: CompanyRef{Name: "Acme"}}}
	matches := testVerifier(gateway).Verify(context.Background(), candidates, &SearchIntent{Summary: "q"})

	if len(matches) != 1 {
		t.Fatalf("expected the candidate to survive a 2-of-3 vote, got %d matches", len(matches))
	}

	got := matches[0]
	if got.Confidence != 67 {
		t.Fatalf("expected confidence 67 for 2 of 3 votes, got %d", got.Confidence)
	}
	if got.MatchScore != 72 {
		t.Fatalf("expected match score round((80+60+75)/3)=72, got %d", got.MatchScore)
	}
	if !got.IsMatch {
		t.Fatal("expected a majority match")
	}
	if len(got.MatchReasons) != 3 {
		t.Fatalf("expected one reason per vote, got %v", got.MatchReasons)
	}
	for _, reason := range got.MatchReasons {
		if !strings.HasPrefix(reason, "✅ ") {
			t.Fatalf("reason missing check prefix: %q", reason)
		}
	}
}

func TestVerifyKeepsOnlyMatchesSortedByScore(t *testing.T) {
	gateway := &fakeGateway{handler: scoreByCandidate(map[string]int{
		"mid":  75,
		"low":  50,
		"high": 90,
	})}

	candidates := []*JobCandidate{
		{ID: "mid", Title: "A", Company: CompanyRef{Name: "Acme"}},
		{ID: "low", Title: "B", Company: CompanyRef{Name: "Beta"}},
		{ID: "high", Title: "C", Company: CompanyRef{Name: "Gamma"}},
	}
	matches := testVerifier(gateway).Verify(context.Background(), candidates, &SearchIntent{Summary: "q"})

	if len(matches) != 2 {
		t.Fatalf("expected the below-threshold candidate to be dropped, got %d matches", len(matches))
	}
	if matches[0].ID != "high" || matches[1].ID != "mid" {
		t.Fatalf("expected [high mid] by descending score, got [%s %s]", matches[0].ID, matches[1].ID)
	}
	for _, match := range matches {
		if !match.IsMatch {
			t.Fatalf("returned candidate %s must be flagged as a match", match.ID)
		}
	}
}

func TestVerifyZeroesCandidateWhenAllVotesFail(t *testing.T) {
	gateway := &fakeGateway{handler: func(string) (string, error) {
		return "", errors.New("backend down")
	}}

	candidate := &JobCandidate{ID: "c1", Title: "Engineer", Company: CompanyRef{Name: "Acme"}}
	matches := testVerifier(gateway).Verify(context.Background(), []*JobCandidate{candidate}, &SearchIntent{Summary: "q"})

	if len(matches) != 0 {
		t.Fatalf("an unverifiable candidate must not be returned as a match, got %d", len(matches))
	}
	if candidate.Confidence != 0 || candidate.MatchScore != 0 || candidate.IsMatch {
		t.Fatalf("expected zeroed verdict, got confidence=%d score=%d match=%v",
			candidate.Confidence, candidate.MatchScore, candidate.IsMatch)
	}
	if len(candidate.MatchReasons) != 1 || !strings.Contains(candidate.MatchReasons[0], "失敗") {
		t.Fatalf("expected the explanatory failure reason, got %v", candidate.MatchReasons)
	}
}

func TestReduceVotesCountsFailedVoteAsZeroScore(t *testing.T) {
	candidate := &JobCandidate{ID: "c1"}
	reduceVotes(candidate, []vote{
		{Score: 80, IsMatch: true, Reason: "適合"},
		{Failed: true},
		{Score: 90, IsMatch: true, Reason: "適合"},
	})

	if candidate.Confidence != 67 {
		t.Fatalf("expected confidence 67, got %d", candidate.Confidence)
	}
	if candidate.MatchScore != 57 {
		t.Fatalf("expected match score round(170/3)=57, got %d", candidate.MatchScore)
	}
	if !candidate.IsMatch {
		t.Fatal("two successful matching votes out of three are a majority")
	}
}

func TestVerifyRunsThreePassesPerCandidate(t *testing.T) {
	gateway := &fakeGateway{handler: func(string) (string, error) {
		return `{"score": 85, "reason": "ok"}`, nil
	}}

	candidates := []*JobCandidate{
		{ID: "a", Title: "A", Company: CompanyRef{Name: "Acme"}},
		{ID: "b", Title: "B", Company: CompanyRef{Name: "Beta"}},
	}
	testVerifier(gateway).Verify(context.Background(), candidates, &SearchIntent{Summary: "q"})

	if gateway.callCount() != 6 {
		t.Fatalf("expected 3 verification calls per candidate, got %d", gateway.callCount())
	}
}
