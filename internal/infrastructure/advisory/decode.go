package advisory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoJSONObject = errors.New("no balanced JSON object in response")

// decodePayload tries a strict decode first and only then falls back to
// extracting the first balanced {...} object, tolerating wrapping prose from
// the service. The five expected fields must all be present and non-empty.
func decodePayload(raw string) (advisoryPayload, error) {
	var payload advisoryPayload

	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		extracted, extractErr := extractJSONObject(trimmed)
		if extractErr != nil {
			return advisoryPayload{}, fmt.Errorf("decode advisory response: %w", extractErr)
		}
		if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
			return advisoryPayload{}, fmt.Errorf("decode extracted advisory object: %w", err)
		}
	}

	if err := validatePayload(payload); err != nil {
		return advisoryPayload{}, err
	}
	return payload, nil
}

func validatePayload(p advisoryPayload) error {
	missing := make([]string, 0, 5)
	if strings.TrimSpace(p.RootCause.String()) == "" {
		missing = append(missing, "root_cause")
	}
	if strings.TrimSpace(p.Severity) == "" {
		missing = append(missing, "severity")
	}
	if strings.TrimSpace(p.ImmediateAction.String()) == "" {
		missing = append(missing, "immediate_action")
	}
	if strings.TrimSpace(p.ResolutionSteps.String()) == "" {
		missing = append(missing, "resolution_steps")
	}
	if strings.TrimSpace(p.PreventiveRecommendations.String()) == "" {
		missing = append(missing, "preventive_recommendations")
	}

	if len(missing) > 0 {
		return fmt.Errorf("advisory response missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// extractJSONObject returns the first balanced top-level {...} object in s,
// skipping braces inside JSON string literals.
func extractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}

	return "", errNoJSONObject
}
