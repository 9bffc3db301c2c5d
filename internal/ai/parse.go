package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ExtractJSON locates the JSON payload inside a model response that may be
// wrapped in markdown fencing or surrounded by prose. It returns the input
// unchanged when no boundary can be found; the subsequent decode reports the
// failure.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
		return strings.TrimSpace(strings.Trim(raw, "`"))
	}

	// Models often preface the payload with a sentence. Scan for the
	// outermost object or array boundary, whichever opens first.
	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")

	switch {
	case arrStart != -1 && (objStart == -1 || arrStart < objStart):
		if end := strings.LastIndex(raw, "]"); end > arrStart {
			return raw[arrStart : end+1]
		}
	case objStart != -1:
		if end := strings.LastIndex(raw, "}"); end > objStart {
			return raw[objStart : end+1]
		}
	}

	return raw
}

// DecodeLoose parses the raw model output into out, tolerating mistyped but
// well-intentioned fields (numbers as strings, single values for slices).
// Fields absent from the payload keep their zero values; a payload that is not
// JSON at all returns an error and leaves out untouched.
func DecodeLoose(raw string, out any) error {
	var payload any
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &payload); err != nil {
		return fmt.Errorf("parse model response: %w", err)
	}

	cfg := &mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	if err := decoder.Decode(payload); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}

	return nil
}
