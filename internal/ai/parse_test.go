package ai

import "testing"

type parsedIntent struct {
	Skills    []string `json:"skills"`
	MinSalary *int     `json:"min_salary"`
	Summary   string   `json:"summary"`
}

func TestExtractJSONFromFencedBlock(t *testing.T) {
	raw := "```json\n{\"skills\": [\"Go\"]}\n```"
	if got := ExtractJSON(raw); got != `{"skills": ["Go"]}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSONFromProse(t *testing.T) {
	raw := "Here is the result you asked for:\n{\"skills\": [\"React\"]} hope it helps"
	if got := ExtractJSON(raw); got != `{"skills": ["React"]}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSONArray(t *testing.T) {
	raw := "results below\n[{\"id\": \"1\"}]"
	if got := ExtractJSON(raw); got != `[{"id": "1"}]` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestDecodeLooseCoercesTypes(t *testing.T) {
	var out parsedIntent
	raw := `{"skills": "React", "min_salary": "8000000", "summary": "東京のReact求人"}`

	if err := DecodeLoose(raw, &out); err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}

	if len(out.Skills) != 1 || out.Skills[0] != "React" {
		t.Fatalf("expected single-value slice coercion, got %v", out.Skills)
	}
	if out.MinSalary == nil || *out.MinSalary != 8000000 {
		t.Fatalf("expected numeric string coercion, got %v", out.MinSalary)
	}
}

func TestDecodeLooseKeepsDefaultsOnMissingFields(t *testing.T) {
	var out parsedIntent
	if err := DecodeLoose(`{}`, &out); err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}

	if out.Skills != nil {
		t.Fatalf("expected nil skills, got %v", out.Skills)
	}
	if out.MinSalary != nil {
		t.Fatalf("expected nil salary, got %v", out.MinSalary)
	}
}

func TestDecodeLooseRejectsNonJSON(t *testing.T) {
	var out parsedIntent
	if err := DecodeLoose("I could not find any jobs, sorry.", &out); err == nil {
		t.Fatal("expected error for non-JSON payload")
	}
}
