package ml

import (
	"fmt"
	"sort"
	"strconv"
)

// Frame is an ordered table of named columns built from a request payload.
// Cells hold float64, string, bool or nil (missing). Every row always has
// the full column set.
type Frame struct {
	columns []string
	rows    [][]interface{}
}

// NumRows returns the number of rows in the frame.
func (f *Frame) NumRows() int {
	return len(f.rows)
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Value returns the cell at the given row and column index.
func (f *Frame) Value(row, col int) interface{} {
	return f.rows[row][col]
}

// NormalizePayload converts a decoded JSON value into a Frame. A single
// object of scalars becomes one row, an object with list values is read
// column-oriented, and a list becomes one row per object element. When the
// handle exposes feature names the columns are reindexed to exactly that
// list and order, and every column is then coerced to numeric where fully
// possible.
func NormalizePayload(payload interface{}, h Handle) (*Frame, error) {
	f, err := frameFromPayload(payload)
	if err != nil {
		return nil, err
	}
	if h != nil {
		if names := h.FeatureNames(); names != nil {
			f.Reindex(names)
		}
	}
	f.CoerceNumeric()
	return f, nil
}

func frameFromPayload(payload interface{}) (*Frame, error) {
	switch v := payload.(type) {
	case map[string]interface{}:
		if hasListValue(v) {
			return frameFromColumns(v)
		}
		return frameFromRecords([]map[string]interface{}{v}), nil
	case []interface{}:
		records := make([]map[string]interface{}, 0, len(v))
		for i, elem := range v {
			rec, ok := elem.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: list element %d is not an object", ErrUnsupportedFormat, i)
			}
			records = append(records, rec)
		}
		return frameFromRecords(records), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

func hasListValue(obj map[string]interface{}) bool {
	for _, v := range obj {
		if _, ok := v.([]interface{}); ok {
			return true
		}
	}
	return false
}

// frameFromColumns builds a frame from a column-oriented object. All list
// values must share one length; scalar values broadcast to it.
func frameFromColumns(obj map[string]interface{}) (*Frame, error) {
	columns := sortedKeys(obj)

	numRows := -1
	for _, name := range columns {
		list, ok := obj[name].([]interface{})
		if !ok {
			continue
		}
		if numRows == -1 {
			numRows = len(list)
		} else if len(list) != numRows {
			return nil, fmt.Errorf("%w: column %q has %d values, expected %d",
				ErrUnsupportedFormat, name, len(list), numRows)
		}
	}

	rows := make([][]interface{}, numRows)
	for i := range rows {
		row := make([]interface{}, len(columns))
		for j, name := range columns {
			if list, ok := obj[name].([]interface{}); ok {
				row[j] = list[i]
			} else {
				row[j] = obj[name]
			}
		}
		rows[i] = row
	}
	return &Frame{columns: columns, rows: rows}, nil
}

// frameFromRecords builds a frame from row-oriented records. Column order
// follows first appearance across the records; keys missing from a record
// become nil cells in its row.
func frameFromRecords(records []map[string]interface{}) *Frame {
	var columns []string
	index := make(map[string]int)
	for _, rec := range records {
		for _, key := range sortedKeys(rec) {
			if _, ok := index[key]; !ok {
				index[key] = len(columns)
				columns = append(columns, key)
			}
		}
	}

	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		row := make([]interface{}, len(columns))
		for key, value := range rec {
			row[index[key]] = value
		}
		rows[i] = row
	}
	return &Frame{columns: columns, rows: rows}
}

// Reindex rearranges the frame columns to exactly the given names and
// order. Extra columns are dropped and missing ones inserted as nil.
func (f *Frame) Reindex(names []string) {
	index := make(map[string]int, len(f.columns))
	for i, name := range f.columns {
		index[name] = i
	}

	rows := make([][]interface{}, len(f.rows))
	for i, old := range f.rows {
		row := make([]interface{}, len(names))
		for j, name := range names {
			if k, ok := index[name]; ok {
				row[j] = old[k]
			}
		}
		rows[i] = row
	}
	f.columns = append([]string(nil), names...)
	f.rows = rows
}

// CoerceNumeric converts column values to float64 where the whole column
// is convertible. A column with any non-convertible cell is left
// unchanged; nil cells stay nil and never block conversion.
func (f *Frame) CoerceNumeric() {
	for col := range f.columns {
		converted := make([]float64, len(f.rows))
		present := make([]bool, len(f.rows))
		ok := true
		for i, row := range f.rows {
			if row[col] == nil {
				continue
			}
			value, convertible := toFloat(row[col])
			if !convertible {
				ok = false
				break
			}
			converted[i] = value
			present[i] = true
		}
		if !ok {
			continue
		}
		for i, row := range f.rows {
			if present[i] {
				row[col] = converted[i]
			}
		}
	}
}

func sortedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func toFloat(cell interface{}) (float64, bool) {
	switch v := cell.(type) {
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		value, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return value, true
	default:
		return 0, false
	}
}
