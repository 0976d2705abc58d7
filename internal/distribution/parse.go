package distribution

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseAllocations decodes the upload form's allocations field.
//
// The usual shape is an object of user id to percent, {"12": 60, "7": 40}.
// Key order is kept because it decides ties. A list of
// {"userId": 12, "percent": 60} objects is accepted as well. Blank input
// yields no allocations.
func ParseAllocations(raw []byte) ([]Allocation, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch raw[0] {
	case '{':
		return parseObject(raw)
	case '[':
		var list []Allocation
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("invalid allocations list: %w", err)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("allocations must be a JSON object")
	}
}

func parseObject(raw []byte) ([]Allocation, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid allocations: %w", err)
	}

	var out []Allocation
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid allocations: %w", err)
		}
		key, _ := tok.(string)
		id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid user id %q in allocations", key)
		}

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("invalid percent for user %s: %w", key, err)
		}
		pct, err := toPercent(value)
		if err != nil {
			return nil, fmt.Errorf("invalid percent for user %s: %w", key, err)
		}
		out = append(out, Allocation{UserID: uint(id), Percent: pct})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid allocations: %w", err)
	}
	return out, nil
}

func toPercent(v interface{}) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
