package executor

import (
	"fmt"
)

// Row is a decoded result row keyed by column name
type Row map[string]interface{}

// ScanRows decodes every row of cursor and closes it.
// Byte slices are returned as strings.
func ScanRows(cursor RowCursor) ([]Row, error) {
	defer cursor.Close()

	columns, err := cursor.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	results := make([]Row, 0)
	for cursor.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := cursor.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
