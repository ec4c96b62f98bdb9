package export

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FromItems flattens a slice of JSON-marshalable values into a Dataset with
// deterministic header order. Nested values are re-encoded as compact JSON so
// every cell stays a plain string.
func FromItems[T any](items []T) (Dataset, error) {
	headerSet := make(map[string]struct{})
	rows := make([]map[string]string, 0, len(items))

	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return Dataset{}, fmt.Errorf("marshal export item: %w", err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Dataset{}, fmt.Errorf("export items must be JSON objects: %w", err)
		}
		row := make(map[string]string, len(fields))
		for key, value := range fields {
			headerSet[key] = struct{}{}
			row[key] = cellString(value)
		}
		rows = append(rows, row)
	}

	headers := make([]string, 0, len(headerSet))
	for header := range headerSet {
		headers = append(headers, header)
	}
	sort.Strings(headers)

	return Dataset{Headers: headers, Rows: rows}, nil
}

func cellString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
