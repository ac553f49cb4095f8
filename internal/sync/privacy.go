package sync

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// removedColumns are never written, never appear in the INSERT column
// list: they identify a specific person and must not cross regions.
var removedColumns = map[string]bool{
	"username":             true,
	"email":                true,
	"full_name":            true,
	"phone":                true,
	"user_email":           true,
	"user_phone":           true,
	"user_name":            true,
	"creator_name":         true,
	"creator_email":        true,
	"creator_phone":        true,
	"salesperson_name":     true,
	"salesperson_email":    true,
	"salesperson_phone":    true,
}

// nulledColumns appear in the INSERT column list but are always bound
// to null: they are foreign keys into the users table, which never
// replicates across regions.
var nulledColumns = map[string]bool{
	"created_by_user_id":  true,
	"salesperson_user_id": true,
}

const epochDayThreshold = 100_000

// Filter applies the Private-Field rules and temporal normalizations to
// an accepted, non-delete change's After map, returning a stable-order
// column list and the matching values.
func Filter(after map[string]any) (columns []string, values []any) {
	for col := range after {
		if strings.HasPrefix(col, "_") {
			continue // metadata, stripped unconditionally
		}
		if col == "id" {
			continue // the sink binds the primary key itself, once
		}
		if removedColumns[col] {
			continue // never appears in the column list
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	values = make([]any, len(columns))
	for i, col := range columns {
		if nulledColumns[col] {
			values[i] = nil
			continue
		}
		values[i] = normalizeTemporal(col, after[col])
	}
	return columns, values
}

// normalizeTemporal applies the encoded-value rules from the data
// model: microsecond epoch -> time.Time for *_at columns, epoch-day ->
// ISO date string for columns whose name contains "date".
func normalizeTemporal(col string, v any) any {
	if strings.HasSuffix(col, "_at") {
		if n, ok := toInt64(v); ok && n > microsecondThreshold {
			return time.UnixMicro(n).UTC()
		}
		return v
	}
	if strings.Contains(col, "date") {
		if n, ok := toInt64(v); ok && n < epochDayThreshold {
			return epochDayToISODate(n)
		}
	}
	return v
}

func epochDayToISODate(days int64) string {
	t := time.Unix(days*86400, 0).UTC()
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day())
}
