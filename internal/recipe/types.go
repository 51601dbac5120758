package recipe

// RawRecipe is one record of the upstream dump. Its shape depends on the dump
// vintage, so it is kept as a plain map.
type RawRecipe map[string]any

// FlatRow is the canonical (output, single ingredient) pair.
// Field order is stable to keep JSON deterministic.
type FlatRow struct {
	OutputID   string `json:"outputId"`
	OutputQty  int    `json:"outputQty"`
	InputID    string `json:"inputId"`
	InputQty   int    `json:"inputQty"`
	Station    string `json:"station"`
	FocusBased bool   `json:"focusBased"`
}
