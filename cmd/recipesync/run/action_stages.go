package run

import (
	"fmt"

	"github.com/GjhanAi/albion-recipes/internal/stage"
)

const (
	ActionSync      = "sync"
	ActionResolve   = "resolve"
	ActionNormalize = "normalize"
)

// PreparedActionStages returns the deterministic stage order used for an action.
func PreparedActionStages(action string, meta *stage.Meta) ([]string, error) {
	switch action {
	case ActionSync:
		stages := []string{"resolve-source", "fetch-content", "decode-recipes", "normalize-rows"}
		if filterEnabled(meta) {
			stages = append(stages, "lua-filter")
		}
		return append(stages, "write-artifacts"), nil
	case ActionResolve:
		return []string{"resolve-source"}, nil
	case ActionNormalize:
		stages := []string{"load-local", "decode-recipes", "normalize-rows"}
		if filterEnabled(meta) {
			stages = append(stages, "lua-filter")
		}
		return append(stages, "write-artifacts"), nil
	default:
		return nil, fmt.Errorf("invalid action: %s", action)
	}
}

func filterEnabled(meta *stage.Meta) bool {
	return meta != nil && meta.Lua != nil && meta.Lua.FilterInline != ""
}
