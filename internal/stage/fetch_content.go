package stage

import (
	"context"
	"fmt"
)

const fetchContentStage = "fetch-content"

func fetchContentRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if deps.Fetcher == nil {
		return Envelope{}, fmt.Errorf("%s: no fetcher configured", fetchContentStage)
	}
	if in.Location == nil {
		return Envelope{}, fmt.Errorf("%s: no resolved location", fetchContentStage)
	}
	body, err := deps.Fetcher.FetchContent(ctx, *in.Location)
	if err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", fetchContentStage, err)
	}
	deps.log().Info("fetched recipe dump", "bytes", len(body))
	out := in
	out.Raw = body
	return out, nil
}

func init() { Register(fetchContentStage, fetchContentRunner) }
