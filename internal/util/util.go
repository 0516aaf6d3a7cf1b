// Package util provides small parsing helpers for operator input.
package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sniperleonid/Calc-sub001/internal/geo"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// ParseMeters parses a signed distance such as "-50", "+100" or "25m".
func ParseMeters(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "m")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid distance %q", s)
	}
	return v, nil
}

// ParseNamedPosition parses "id=x,y[,z]".
func ParseNamedPosition(s string) (string, core.Position3D, error) {
	id, coords, ok := strings.Cut(TrimQuotes(strings.TrimSpace(s)), "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return "", core.Position3D{}, fmt.Errorf("expected id=x,y[,z], got %q", s)
	}
	pos, err := geo.Position3DFromString(coords)
	if err != nil {
		return "", core.Position3D{}, fmt.Errorf("%s: %w", id, err)
	}
	return id, pos, nil
}

// ParseAssignments parses "gun=weapon" pairs separated by commas.
func ParseAssignments(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("expected gun=weapon, got %q", part)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// ToMap flattens v to its JSON object form. Non-object values are kept
// under "value".
func ToMap(v any) map[string]any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{"value": json.RawMessage(b)}
	}
	return out
}
