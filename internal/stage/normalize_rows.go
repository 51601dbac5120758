package stage

import (
	"context"
	"fmt"

	"github.com/GjhanAi/albion-recipes/internal/recipe"
)

const normalizeRowsStage = "normalize-rows"

// normalizeRowsRunner flattens records across a worker pool. Results are
// stitched back in record order, so output matches recipe.Normalize.
func normalizeRowsRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}
	parts := runIndexedParallel(len(in.Recipes), getWorkers(in.Meta), func(i int) []recipe.FlatRow {
		return recipe.NormalizeRecord(in.Recipes[i])
	})
	total, dropped := 0, 0
	for _, p := range parts {
		total += len(p)
		if p == nil {
			dropped++
		}
	}
	rows := make([]recipe.FlatRow, 0, total)
	for _, p := range parts {
		rows = append(rows, p...)
	}
	deps.log().Info("normalized", "recipes", len(in.Recipes), "rows", len(rows))
	out := in
	out.Rows = rows
	if dropped > 0 {
		recordError(&out, normalizeRowsStage, fmt.Errorf("records without an output id dropped: %d", dropped))
		deps.log().Warn("dropped records", "count", dropped)
	}
	return out, nil
}

func init() { Register(normalizeRowsStage, normalizeRowsRunner) }
