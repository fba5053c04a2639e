package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractJSONObject pulls a single JSON object out of a model response.
// Models wrap their output in markdown fences or prose often enough that a
// plain Unmarshal is not good enough; malformed candidates are run through
// the jsonrepair library before giving up.
func ExtractJSONObject(response string) (string, error) {
	candidate := locateJSON(response)
	if candidate == "" {
		return "", fmt.Errorf("no JSON object found in response")
	}

	var testObj interface{}
	if json.Unmarshal([]byte(candidate), &testObj) == nil {
		return candidate, nil
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return "", fmt.Errorf("failed to repair JSON in response: %w", err)
	}
	if json.Unmarshal([]byte(repaired), &testObj) != nil {
		return "", fmt.Errorf("response is not valid JSON after repair")
	}

	return repaired, nil
}

// locateJSON finds the best candidate object inside the response: the whole
// trimmed response, the body of a markdown code block, or the outermost
// brace-delimited slice.
func locateJSON(response string) string {
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed
	}

	// Try to extract from markdown code blocks.
	fenced := trimmed
	if start := strings.Index(fenced, "```"); start != -1 {
		fenced = fenced[start+3:]
		fenced = strings.TrimPrefix(fenced, "json")
		if end := strings.Index(fenced, "```"); end != -1 {
			fenced = fenced[:end]
		}
		fenced = strings.TrimSpace(fenced)
		if strings.HasPrefix(fenced, "{") {
			return fenced
		}
	}

	start := strings.Index(trimmed, "{")
	if start == -1 {
		return ""
	}
	// A truncated object has no closing brace; hand the tail to the
	// repairer, which can complete it.
	end := strings.LastIndex(trimmed, "}")
	if end <= start {
		return trimmed[start:]
	}
	return trimmed[start : end+1]
}
