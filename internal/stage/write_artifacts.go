package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GjhanAi/albion-recipes/internal/manifest"
	"github.com/GjhanAi/albion-recipes/internal/recipe"
	"github.com/GjhanAi/albion-recipes/internal/store"
)

const writeArtifactsStage = "write-artifacts"

const (
	ArtifactRaw      = "raw-json"
	ArtifactFlatJSON = "flat-json"
	ArtifactFlatCSV  = "flat-csv"
	ArtifactManifest = "manifest"
	ArtifactSQLite   = "sqlite"
)

func writeTo(outPath string, data []byte) error {
	if outPath == "" || outPath == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%s: %v", writeArtifactsStage, err)
		}
	}
	return os.WriteFile(outPath, data, 0o644)
}

func (e *Envelope) addArtifact(kind, path string, size int) {
	e.Artifacts = append(e.Artifacts, Artifact{Kind: kind, Path: path, Bytes: size})
}

// writeArtifactsRunner writes every configured artifact, manifest last so it
// can list the others. Existing files are overwritten; nothing is cleaned up
// on failure.
func writeArtifactsRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Meta == nil || in.Meta.Output == nil {
		return Envelope{}, fmt.Errorf("%s: no output configured", writeArtifactsStage)
	}
	o := in.Meta.Output
	out := in
	out.Artifacts = nil

	type encoded struct {
		kind, path string
		encode     func() ([]byte, error)
	}
	files := []encoded{
		{ArtifactRaw, o.Raw, func() ([]byte, error) { return recipe.IndentRaw(in.Raw) }},
		{ArtifactFlatJSON, o.FlatJSON, func() ([]byte, error) { return recipe.EncodeJSON(in.Rows) }},
		{ArtifactFlatCSV, o.FlatCSV, func() ([]byte, error) { return recipe.EncodeCSV(in.Rows) }},
	}
	for _, f := range files {
		if f.path == "" || (f.kind == ArtifactRaw && len(in.Raw) == 0) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Envelope{}, err
		}
		b, err := f.encode()
		if err != nil {
			return Envelope{}, fmt.Errorf("%s: %s: %w", writeArtifactsStage, f.kind, err)
		}
		if err := writeTo(f.path, b); err != nil {
			return Envelope{}, fmt.Errorf("%s: %s: %w", writeArtifactsStage, f.kind, err)
		}
		out.addArtifact(f.kind, f.path, len(b))
		deps.log().Debug("wrote artifact", "kind", f.kind, "path", f.path, "bytes", len(b))
	}

	if o.SQLite != "" {
		if err := store.Export(ctx, o.SQLite, in.Rows); err != nil {
			return Envelope{}, fmt.Errorf("%s: %s: %w", writeArtifactsStage, ArtifactSQLite, err)
		}
		size := 0
		if fi, err := os.Stat(o.SQLite); err == nil {
			size = int(fi.Size())
		}
		out.addArtifact(ArtifactSQLite, o.SQLite, size)
	}

	if o.Manifest != "" {
		m := manifest.Manifest{
			Location: in.Location,
			Recipes:  len(in.Recipes),
			Rows:     len(in.Rows),
			Filtered: in.Filtered,
		}
		for _, a := range out.Artifacts {
			m.Artifacts = append(m.Artifacts, manifest.Artifact{Kind: a.Kind, Path: a.Path, Bytes: a.Bytes})
		}
		b, err := manifest.Marshal(m)
		if err != nil {
			return Envelope{}, fmt.Errorf("%s: %s: %w", writeArtifactsStage, ArtifactManifest, err)
		}
		if err := writeTo(o.Manifest, b); err != nil {
			return Envelope{}, fmt.Errorf("%s: %s: %w", writeArtifactsStage, ArtifactManifest, err)
		}
		out.addArtifact(ArtifactManifest, o.Manifest, len(b))
	}
	deps.log().Info("artifacts written", "count", len(out.Artifacts))
	return out, nil
}

func init() { Register(writeArtifactsStage, writeArtifactsRunner) }
