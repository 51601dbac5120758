package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// compileCUE loads and compiles a CUE file at the given path.
func compileCUE(path string) (cue.Value, error) {
	if filepath.Ext(path) != ".cue" {
		return cue.Value{}, errors.New("unsupported config format: expected .cue")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read config: %w", err)
	}
	return compileBytes(data)
}

func compileBytes(data []byte) (cue.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("invalid config: %v", err)
	}
	return v, nil
}

func requireStringField(v cue.Value, name string) error {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return fmt.Errorf("missing required field: %s", name)
	}
	if f.Kind() != cue.StringKind {
		return fmt.Errorf("invalid type for field: %s (expected string)", name)
	}
	return nil
}

// The lookup helpers leave dst untouched when the field is absent or has the
// wrong kind, so defaults survive partial configs.

func lookupString(v cue.Value, path string, dst *string) {
	f := v.LookupPath(cue.ParsePath(path))
	if f.Exists() && f.Kind() == cue.StringKind {
		_ = f.Decode(dst)
	}
}

func lookupBool(v cue.Value, path string, dst *bool) {
	f := v.LookupPath(cue.ParsePath(path))
	if f.Exists() && f.Kind() == cue.BoolKind {
		_ = f.Decode(dst)
	}
}

func lookupInt(v cue.Value, path string, dst *int) {
	f := v.LookupPath(cue.ParsePath(path))
	if f.Exists() && f.Kind() == cue.IntKind {
		_ = f.Decode(dst)
	}
}

func lookupStrings(v cue.Value, path string, dst *[]string) error {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil
	}
	if f.Kind() != cue.ListKind {
		return fmt.Errorf("invalid type for field: %s (expected list of strings)", path)
	}
	var out []string
	if err := f.Decode(&out); err != nil {
		return fmt.Errorf("invalid value for %s: %v", path, err)
	}
	*dst = out
	return nil
}
