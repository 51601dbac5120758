package stage

import (
	"context"

	"github.com/GjhanAi/albion-recipes/internal/logger"
	"github.com/GjhanAi/albion-recipes/internal/source"
)

// Resolver finds the recipe dump among candidate repositories.
type Resolver interface {
	Resolve(ctx context.Context, candidates []source.Candidate) (source.Location, error)
}

// Fetcher downloads the dump at a resolved location.
type Fetcher interface {
	FetchContent(ctx context.Context, loc source.Location) ([]byte, error)
}

// Deps holds what stages need from the outside world. Stages that do not
// touch the network leave Resolver and Fetcher unused.
type Deps struct {
	Resolver Resolver
	Fetcher  Fetcher
	Log      logger.Logger
}

func (d Deps) log() logger.Logger {
	if d.Log == nil {
		return logger.Nop()
	}
	return d.Log
}

// Runner executes a stage.
type Runner func(ctx context.Context, in Envelope, deps Deps) (Envelope, error)

var registry = map[string]Runner{}

// Register adds a stage runner.
func Register(name string, r Runner) {
	registry[name] = r
}

// Run executes a registered stage by name.
func Run(ctx context.Context, name string, in Envelope, deps Deps) (Envelope, error) {
	r, ok := registry[name]
	if !ok {
		return Envelope{}, ErrUnknown{name: name}
	}
	return r(ctx, in, deps)
}

// ErrUnknown is returned when a stage is not found.
type ErrUnknown struct{ name string }

func (e ErrUnknown) Error() string { return "unknown stage: " + e.name }
