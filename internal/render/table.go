// Package render turns JSON report payloads into PDF or XLSX files.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Table is a flat view of a JSON report payload.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// ParseTable accepts an array of objects, an object wrapping such an array
// under "list" or "data", or a single object rendered as one row. Columns
// are sorted by name.
func ParseTable(title string, data []byte) (Table, error) {
	var root any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&root); err != nil {
		return Table{}, fmt.Errorf("decode report json: %w", err)
	}

	items, err := extractItems(root)
	if err != nil {
		return Table{}, err
	}

	table := Table{Title: title}
	seen := make(map[string]struct{})
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			for key := range obj {
				seen[key] = struct{}{}
			}
		} else {
			seen["value"] = struct{}{}
		}
	}
	for key := range seen {
		table.Columns = append(table.Columns, key)
	}
	sort.Strings(table.Columns)

	for _, item := range items {
		row := make([]string, len(table.Columns))
		obj, isObj := item.(map[string]any)
		for i, col := range table.Columns {
			switch {
			case isObj:
				row[i] = formatCell(obj[col])
			case col == "value":
				row[i] = formatCell(item)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func extractItems(root any) ([]any, error) {
	switch v := root.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range []string{"list", "data"} {
			if inner, ok := v[key]; ok {
				if items, ok := inner.([]any); ok {
					return items, nil
				}
				return nil, fmt.Errorf("report json field %q is not an array", key)
			}
		}
		return []any{v}, nil
	default:
		return nil, fmt.Errorf("report json must be an array or an object")
	}
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}
