package stage

import (
	"context"
	"os"
	"testing"

	"github.com/GjhanAi/albion-recipes/internal/source"
)

func mustRead(t *testing.T, p string) []byte {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return b
}

type fakeResolver struct {
	loc  source.Location
	err  error
	seen []source.Candidate
}

func (f *fakeResolver) Resolve(_ context.Context, c []source.Candidate) (source.Location, error) {
	f.seen = c
	return f.loc, f.err
}

type fakeFetcher struct {
	body []byte
	err  error
	got  source.Location
}

func (f *fakeFetcher) FetchContent(_ context.Context, loc source.Location) ([]byte, error) {
	f.got = loc
	return f.body, f.err
}

func defaultLuaSandboxForTest() *LuaSandboxMeta {
	return &LuaSandboxMeta{
		TimeoutMs:        2000,
		InstructionLimit: 1000000,
		MemoryLimitBytes: 8388608,
		Libs: LuaSandboxLibsMeta{
			Base:   true,
			Table:  true,
			String: true,
			Math:   true,
		},
		DeterministicRandom: true,
	}
}

// runChain runs stages in order, stopping at the first error.
func runChain(t *testing.T, in Envelope, deps Deps, names ...string) (Envelope, error) {
	t.Helper()
	env := in
	for _, n := range names {
		var err error
		env, err = Run(context.Background(), n, env, deps)
		if err != nil {
			return env, err
		}
	}
	return env, nil
}
