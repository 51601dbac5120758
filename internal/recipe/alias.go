package recipe

// Alias lists are ordered by priority. Downstream consumers rely on which key
// wins when several are present, so do not reorder.
var (
	outputIDKeys    = []string{"OutputObject", "OutputItem", "OutputItemId", "output", "UniqueName", "ItemId"}
	outputQtyKeys   = []string{"OutputAmount", "OutputQuantity", "OutputQty", "quantity", "Amount"}
	stationKeys     = []string{"CraftingCategory", "CraftingStation", "Station", "station"}
	focusKeys       = []string{"FocusBased", "focusBased", "UsesFocus", "RequiresFocus"}
	ingredientsKeys = []string{"Ingredients", "ingredients", "EntryRequirements", "CraftResources", "craftresource"}

	ingredientIDKeys  = []string{"Object", "Item", "ItemId", "item", "UniqueName", "uniquename"}
	ingredientQtyKeys = []string{"Count", "Amount", "count", "amount"}
)

// firstPresent returns the value of the first key present in rec with a
// non-null value.
func firstPresent(rec map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := rec[k]
		if ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstString(rec map[string]any, keys []string, def string) string {
	v, ok := firstPresent(rec, keys)
	if !ok {
		return def
	}
	s, ok := coerceString(v)
	if !ok {
		return def
	}
	return s
}

// firstInt resolves an integer field. Values below min count as a coercion
// failure and yield def.
func firstInt(rec map[string]any, keys []string, min, def int) int {
	v, ok := firstPresent(rec, keys)
	if !ok {
		return def
	}
	n, ok := coerceInt(v)
	if !ok || n < min {
		return def
	}
	return n
}

func firstBool(rec map[string]any, keys []string, def bool) bool {
	v, ok := firstPresent(rec, keys)
	if !ok {
		return def
	}
	b, ok := coerceBool(v)
	if !ok {
		return def
	}
	return b
}

// firstList resolves a sequence field. A lone object is treated as a
// one-element list, which is how XML-derived dumps encode single children.
func firstList(rec map[string]any, keys []string) []any {
	v, ok := firstPresent(rec, keys)
	if !ok {
		return nil
	}
	switch x := v.(type) {
	case []any:
		return x
	case map[string]any:
		return []any{x}
	case RawRecipe:
		return []any{map[string]any(x)}
	default:
		return nil
	}
}
