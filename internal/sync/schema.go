package sync

// tableColumns is the local schema descriptor used to whitelist
// incoming columns before SQL synthesis, per the design note in
// spec.md §9: validate against a known schema rather than trusting the
// runtime column set.
var tableColumns = map[Table]map[string]bool{
	TableProducts: setOf(
		"id", "product_name", "description", "price", "stock_quantity",
		"category", "manufacturer_country", "created_by_user_id",
		"sync_source", "version", "created_at", "updated_at",
	),
	TableSales: setOf(
		"id", "sale_date", "product_id", "product_name", "quantity",
		"unit_price", "total_amount", "customer_name", "sale_region",
		"sync_source", "salesperson_user_id", "version", "created_at",
		"updated_at",
	),
}

func setOf(cols ...string) map[string]bool {
	m := make(map[string]bool, len(cols))
	for _, c := range cols {
		m[c] = true
	}
	return m
}

// whitelist drops any (column, value) pair not present in the table's
// known schema. It never errors: an unknown column is logged by the
// caller and silently excluded, matching spec.md §4.5's "unknown
// columns must not abort the overall consumer."
func whitelist(table Table, columns []string, values []any) ([]string, []any, []string) {
	known := tableColumns[table]
	outCols := make([]string, 0, len(columns))
	outVals := make([]any, 0, len(values))
	var dropped []string
	for i, col := range columns {
		if known[col] {
			outCols = append(outCols, col)
			outVals = append(outVals, values[i])
		} else {
			dropped = append(dropped, col)
		}
	}
	return outCols, outVals, dropped
}
