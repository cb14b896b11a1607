package decision

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// CoerceAllocationJSON extracts the allocation object from a raw
// allocator response. Responses arrive wrapped in markdown fences or
// under a "decision" key often enough that strict parsing alone loses
// usable output.
func CoerceAllocationJSON(raw string) (string, error) {
	raw = stripFences(strings.TrimSpace(raw))
	if raw == "" {
		return "", fmt.Errorf("empty allocator response")
	}
	if !gjson.Valid(raw) {
		// Salvage the outermost object from surrounding prose.
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start == -1 || end <= start {
			return "", fmt.Errorf("no json object in allocator response")
		}
		raw = raw[start : end+1]
		if !gjson.Valid(raw) {
			return "", fmt.Errorf("malformed json in allocator response")
		}
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return "", fmt.Errorf("allocator response must be a json object")
	}
	if inner := parsed.Get("decision"); inner.Exists() && inner.IsObject() {
		return strings.TrimSpace(inner.Raw), nil
	}
	if !parsed.Get("allocations").Exists() {
		return "", fmt.Errorf("allocator response missing allocations")
	}
	return raw, nil
}

func stripFences(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
