package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// WriteGenericCSV writes one row per record with the union of keys seen, in
// first-seen order. Nested values are JSON encoded in place. Returns the
// number of rows written.
func WriteGenericCSV(w io.Writer, payload any, kind string) (int, error) {
	items := Items(payload, kind)
	if len(items) == 0 {
		return 0, nil
	}

	var columns []string
	seen := map[string]bool{}
	for _, item := range items {
		for _, key := range keysInOrder(item) {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return 0, err
	}
	for _, item := range items {
		record := make([]string, len(columns))
		for i, key := range columns {
			record[i] = cellValue(item[key])
		}
		if err := writer.Write(record); err != nil {
			return 0, err
		}
	}
	writer.Flush()
	return len(items), writer.Error()
}

func cellValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	case bool:
		return fmt.Sprintf("%t", value)
	case map[string]any, []any:
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func keysInOrder(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	// Map iteration order is random; sort for a deterministic header.
	sort.Strings(keys)
	return keys
}
