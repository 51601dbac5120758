// Package recipe maps heterogeneous recipe dumps onto the flat row schema and
// serializes rows to JSON and CSV.
package recipe

// Normalize flattens records into one row per (recipe, ingredient) pair.
// It never fails: records without an output id are dropped, malformed fields
// fall back to defaults.
func Normalize(records []RawRecipe) []FlatRow {
	rows := make([]FlatRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, NormalizeRecord(rec)...)
	}
	return rows
}

// NormalizeRecord flattens a single record. A nil result means the record was
// dropped.
func NormalizeRecord(rec RawRecipe) []FlatRow {
	if rec == nil {
		return nil
	}
	base := FlatRow{
		OutputID:   firstString(rec, outputIDKeys, ""),
		OutputQty:  firstInt(rec, outputQtyKeys, 1, 1),
		Station:    firstString(rec, stationKeys, ""),
		FocusBased: firstBool(rec, focusKeys, false),
	}
	if base.OutputID == "" {
		return nil
	}

	var rows []FlatRow
	for _, item := range firstList(rec, ingredientsKeys) {
		ing, ok := asMap(item)
		if !ok {
			continue
		}
		id := firstString(ing, ingredientIDKeys, "")
		if id == "" {
			continue
		}
		row := base
		row.InputID = id
		row.InputQty = firstInt(ing, ingredientQtyKeys, 0, 1)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return []FlatRow{base}
	}
	return rows
}

func asMap(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case RawRecipe:
		return x, true
	default:
		return nil, false
	}
}
