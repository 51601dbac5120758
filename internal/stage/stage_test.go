package stage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/GjhanAi/albion-recipes/internal/recipe"
	"github.com/GjhanAi/albion-recipes/internal/source"
	"github.com/GjhanAi/albion-recipes/internal/store"
)

const bagDump = `[{"OutputObject":"T4_BAG","OutputAmount":1,"CraftingCategory":"Tanner","FocusBased":true,
"Ingredients":[{"Object":"T4_LEATHER","Count":8},{"Object":"T4_CLOTH","Count":8}]},
{"UniqueName":"T2_PLANKS"},{"Station":"nowhere"}]`

func outputMeta(dir string) *OutputMeta {
	return &OutputMeta{
		Raw:      filepath.Join(dir, "recipes.json"),
		FlatJSON: filepath.Join(dir, "recipes.flat.json"),
		FlatCSV:  filepath.Join(dir, "recipes.flat.csv"),
		Manifest: filepath.Join(dir, "recipes.manifest.yaml"),
	}
}

func TestRun_UnknownStage(t *testing.T) {
	_, err := Run(context.Background(), "nope", Envelope{}, Deps{})
	if err == nil || err.Error() != "unknown stage: nope" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSyncChain_WritesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	loc := source.Location{Owner: "o", Repo: "r", Branch: "master", Path: "formatted/recipes.json", Method: source.MethodPreferredPath}
	res := &fakeResolver{loc: loc}
	fet := &fakeFetcher{body: []byte(bagDump)}
	cands := []source.Candidate{{Owner: "o", Repo: "r", Branch: "master"}}
	in := Envelope{Meta: &Meta{Sources: cands, Workers: 2, Output: outputMeta(dir)}}

	out, err := runChain(t, in, Deps{Resolver: res, Fetcher: fet},
		"resolve-source", "fetch-content", "decode-recipes", "normalize-rows", "lua-filter", "write-artifacts")
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if !reflect.DeepEqual(res.seen, cands) || fet.got != loc {
		t.Fatalf("resolver/fetcher not wired: %+v %+v", res.seen, fet.got)
	}
	if len(out.Recipes) != 3 || len(out.Rows) != 3 {
		t.Fatalf("unexpected counts: recipes=%d rows=%d", len(out.Recipes), len(out.Rows))
	}
	kinds := []string{}
	for _, a := range out.Artifacts {
		kinds = append(kinds, a.Kind)
		if a.Bytes <= 0 {
			t.Fatalf("artifact %s has no bytes", a.Kind)
		}
	}
	if strings.Join(kinds, ",") != "raw-json,flat-json,flat-csv,manifest" {
		t.Fatalf("unexpected artifacts: %v", kinds)
	}
	f, err := os.Open(filepath.Join(dir, "recipes.flat.csv"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	rows, err := recipe.ReadCSV(f)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !reflect.DeepEqual(rows, out.Rows) {
		t.Fatalf("csv rows differ\nwant: %+v\n got: %+v", out.Rows, rows)
	}
	raw := string(mustRead(t, filepath.Join(dir, "recipes.json")))
	if !strings.HasPrefix(raw, "[\n  {\n    \"OutputObject\": \"T4_BAG\"") {
		t.Fatalf("raw dump not indented verbatim:\n%s", raw)
	}
	man := string(mustRead(t, filepath.Join(dir, "recipes.manifest.yaml")))
	for _, want := range []string{"method: preferred-path", "recipes: 3", "rows: 3", "kind: flat-csv"} {
		if !strings.Contains(man, want) {
			t.Fatalf("manifest missing %q:\n%s", want, man)
		}
	}
}

func TestNormalizeRows_MatchesSequential(t *testing.T) {
	recs, err := recipe.DecodeRaw([]byte(bagDump))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, workers := range []int{1, 3, 16} {
		out, err := Run(context.Background(), "normalize-rows", Envelope{Recipes: recs, Meta: &Meta{Workers: workers}}, Deps{})
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		if want := recipe.Normalize(recs); !reflect.DeepEqual(out.Rows, want) {
			t.Fatalf("workers=%d: order differs\nwant: %+v\n got: %+v", workers, want, out.Rows)
		}
		if len(out.Errors) != 1 || out.Errors[0].Stage != "normalize-rows" ||
			out.Errors[0].Message != "records without an output id dropped: 1" {
			t.Fatalf("workers=%d: unexpected envelope errors: %+v", workers, out.Errors)
		}
	}
}

func TestResolveSource_DefaultsAndErrors(t *testing.T) {
	res := &fakeResolver{err: &source.DiscoveryError{}}
	_, err := Run(context.Background(), "resolve-source", Envelope{}, Deps{Resolver: res})
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "resolve-source: ") {
		t.Fatalf("missing stage prefix: %v", err)
	}
	if !reflect.DeepEqual(res.seen, source.DefaultCandidates()) {
		t.Fatalf("expected default candidates, got %+v", res.seen)
	}
	if _, err := Run(context.Background(), "resolve-source", Envelope{}, Deps{}); err == nil {
		t.Fatalf("expected error without resolver")
	}
}

func TestFetchContent_RequiresLocation(t *testing.T) {
	_, err := Run(context.Background(), "fetch-content", Envelope{}, Deps{Fetcher: &fakeFetcher{}})
	if err == nil || !strings.Contains(err.Error(), "no resolved location") {
		t.Fatalf("unexpected error: %v", err)
	}
	fe := &source.FetchError{}
	_, err = Run(context.Background(), "fetch-content", Envelope{Location: &source.Location{}}, Deps{Fetcher: &fakeFetcher{err: fe}})
	if !errors.Is(err, source.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestDecodeRecipes_InvalidPayload(t *testing.T) {
	_, err := Run(context.Background(), "decode-recipes", Envelope{Raw: []byte(`{"not":"array"}`)}, Deps{})
	if !errors.Is(err, recipe.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestLoadLocal(t *testing.T) {
	p := filepath.Join(t.TempDir(), "dump.json")
	if err := os.WriteFile(p, []byte(bagDump), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := Run(context.Background(), "load-local", Envelope{Meta: &Meta{InputPath: p}}, Deps{})
	if err != nil {
		t.Fatalf("load-local: %v", err)
	}
	if string(out.Raw) != bagDump {
		t.Fatalf("unexpected raw")
	}
	if _, err := Run(context.Background(), "load-local", Envelope{Meta: &Meta{InputPath: p + ".missing"}}, Deps{}); err == nil {
		t.Fatalf("expected missing-file error")
	}
}

func TestWriteArtifacts_SQLiteAndNoRaw(t *testing.T) {
	dir := t.TempDir()
	o := outputMeta(filepath.Join(dir, "data"))
	o.SQLite = filepath.Join(dir, "data", "recipes.flat.db")
	rows := []recipe.FlatRow{{OutputID: "T2_PLANKS", OutputQty: 1}}
	out, err := Run(context.Background(), "write-artifacts", Envelope{Rows: rows, Meta: &Meta{Output: o}}, Deps{})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	kinds := []string{}
	for _, a := range out.Artifacts {
		kinds = append(kinds, a.Kind)
	}
	if strings.Join(kinds, ",") != "flat-json,flat-csv,sqlite,manifest" {
		t.Fatalf("unexpected artifacts: %v", kinds)
	}
	db, err := store.Open(context.Background(), o.SQLite)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	got, err := store.LoadRows(context.Background(), db)
	if err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("unexpected db rows: %+v", got)
	}
	if _, err := os.Stat(o.Raw); !os.IsNotExist(err) {
		t.Fatalf("raw dump should not be written without raw bytes")
	}
}

func TestWriteArtifacts_RequiresOutput(t *testing.T) {
	if _, err := Run(context.Background(), "write-artifacts", Envelope{}, Deps{}); err == nil {
		t.Fatalf("expected error")
	}
}
