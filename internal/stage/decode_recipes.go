package stage

import (
	"context"
	"fmt"

	"github.com/GjhanAi/albion-recipes/internal/recipe"
)

const decodeRecipesStage = "decode-recipes"

func decodeRecipesRunner(_ context.Context, in Envelope, deps Deps) (Envelope, error) {
	recs, err := recipe.DecodeRaw(in.Raw)
	if err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", decodeRecipesStage, err)
	}
	deps.log().Debug("decoded recipes", "recipes", len(recs))
	out := in
	out.Recipes = recs
	return out, nil
}

func init() { Register(decodeRecipesStage, decodeRecipesRunner) }
