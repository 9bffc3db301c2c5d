package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"
)

//go:embed prompts/intent.md
var intentPromptTemplate string

//go:embed prompts/candidates.md
var candidatesPromptTemplate string

//go:embed prompts/vote_direct.md
var voteDirectTemplate string

//go:embed prompts/vote_checklist.md
var voteChecklistTemplate string

//go:embed prompts/vote_adversarial.md
var voteAdversarialTemplate string

//go:embed prompts/facet_technical.md
var facetTechnicalTemplate string

//go:embed prompts/facet_culture.md
var facetCultureTemplate string

func buildIntentPrompt(query string) string {
	return strings.ReplaceAll(intentPromptTemplate, "{{QUERY}}", query)
}

func buildCandidatesPrompt(intent *SearchIntent, limit int) string {
	prompt := strings.ReplaceAll(candidatesPromptTemplate, "{{SEARCH_QUERY}}", groundingQuery(intent))
	return strings.ReplaceAll(prompt, "{{LIMIT}}", fmt.Sprintf("%d", limit))
}

func buildVotePrompt(template string, candidate *JobCandidate, intent *SearchIntent) string {
	prompt := strings.ReplaceAll(template, "{{CANDIDATE_JSON}}", marshalForPrompt(candidate))
	prompt = strings.ReplaceAll(prompt, "{{INTENT_JSON}}", marshalForPrompt(intent))
	return strings.ReplaceAll(prompt, "{{REQUIREMENTS}}", requirementsList(intent))
}

func buildFacetPrompt(template, companyName string, intent *SearchIntent) string {
	prompt := strings.ReplaceAll(template, "{{COMPANY_NAME}}", companyName)
	return strings.ReplaceAll(prompt, "{{INTENT_JSON}}", marshalForPrompt(intent))
}

func marshalForPrompt(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// groundingQuery renders the intent into one composite natural-language
// search query covering explicit, implicit and excluded conditions.
func groundingQuery(intent *SearchIntent) string {
	var parts []string

	if len(intent.Explicit.Locations) > 0 {
		parts = append(parts, "勤務地: "+strings.Join(intent.Explicit.Locations, " "))
	}
	if len(intent.Explicit.Skills) > 0 {
		parts = append(parts, "スキル: "+strings.Join(intent.Explicit.Skills, " "))
	}
	if salary := firstSalary(intent.Explicit.MinSalary, intent.Implicit.MinSalary); salary > 0 {
		parts = append(parts, fmt.Sprintf("最低年収: %d円", salary))
	}
	if intent.Implicit.Role != nil && *intent.Implicit.Role != "" {
		parts = append(parts, "職種: "+*intent.Implicit.Role)
	}
	if len(intent.Implicit.EmploymentType) > 0 {
		parts = append(parts, "雇用形態: "+strings.Join(intent.Implicit.EmploymentType, " "))
	}
	if len(intent.Implicit.CompanySize) > 0 {
		parts = append(parts, "企業規模: "+strings.Join(intent.Implicit.CompanySize, " "))
	}
	if len(intent.Implicit.MustHave) > 0 {
		parts = append(parts, "必須条件: "+strings.Join(intent.Implicit.MustHave, " "))
	}
	if len(intent.Implicit.NiceToHave) > 0 {
		parts = append(parts, "歓迎条件: "+strings.Join(intent.Implicit.NiceToHave, " "))
	}
	if len(intent.Exclude) > 0 {
		parts = append(parts, "除外条件: "+strings.Join(intent.Exclude, " "))
	}

	if len(parts) == 0 {
		return intent.Summary
	}

	return strings.Join(parts, " / ")
}

// requirementsList enumerates the strict requirements checked by the
// checklist verification pass: explicit skills, implicit must-haves, plus
// location and salary constraints.
func requirementsList(intent *SearchIntent) string {
	var items []string

	items = append(items, intent.Explicit.Skills...)
	items = append(items, intent.Implicit.MustHave...)

	if len(intent.Explicit.Locations) > 0 {
		items = append(items, "勤務地が「"+strings.Join(intent.Explicit.Locations, "・")+"」であること")
	}
	if salary := firstSalary(intent.Explicit.MinSalary, intent.Implicit.MinSalary); salary > 0 {
		items = append(items, fmt.Sprintf("年収が%d円以上であること", salary))
	}

	if len(items) == 0 {
		return "- (明示的な必須条件なし)"
	}

	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return strings.TrimRight(b.String(), "\n")
}

func firstSalary(values ...*int) int {
	for _, v := range values {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}
