package stage

import (
	"context"
	"fmt"
	"os"
)

const loadLocalStage = "load-local"

// loadLocalRunner reads a previously downloaded dump instead of fetching one.
func loadLocalRunner(_ context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Meta == nil || in.Meta.InputPath == "" {
		return Envelope{}, fmt.Errorf("%s: no input path", loadLocalStage)
	}
	body, err := os.ReadFile(in.Meta.InputPath)
	if err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", loadLocalStage, err)
	}
	deps.log().Info("loaded local dump", "path", in.Meta.InputPath, "bytes", len(body))
	out := in
	out.Raw = body
	return out, nil
}

func init() { Register(loadLocalStage, loadLocalRunner) }
