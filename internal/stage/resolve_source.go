package stage

import (
	"context"
	"fmt"

	"github.com/GjhanAi/albion-recipes/internal/source"
)

const resolveSourceStage = "resolve-source"

func candidatesFromMeta(meta *Meta) []source.Candidate {
	if meta != nil && len(meta.Sources) > 0 {
		return meta.Sources
	}
	return source.DefaultCandidates()
}

func resolveSourceRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if deps.Resolver == nil {
		return Envelope{}, fmt.Errorf("%s: no resolver configured", resolveSourceStage)
	}
	cands := candidatesFromMeta(in.Meta)
	deps.log().Info("resolving recipe dump", "candidates", len(cands))
	loc, err := deps.Resolver.Resolve(ctx, cands)
	if err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", resolveSourceStage, err)
	}
	deps.log().Info("resolved", "location", loc.String(), "method", string(loc.Method))
	out := in
	out.Location = &loc
	return out, nil
}

func init() { Register(resolveSourceStage, resolveSourceRunner) }
