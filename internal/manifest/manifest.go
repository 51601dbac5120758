// Package manifest writes the YAML summary that accompanies each sync.
package manifest

import (
	"bytes"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/GjhanAi/albion-recipes/internal/source"
)

// Artifact is one file produced by a run.
type Artifact struct {
	Kind  string
	Path  string
	Bytes int
}

// Manifest describes where the dump came from and what was written.
type Manifest struct {
	Location  *source.Location
	Recipes   int
	Rows      int
	Filtered  int
	Artifacts []Artifact
}

// Marshal returns canonical YAML bytes. Top-level sections keep a fixed order
// and nested keys are sorted, so the same manifest always yields the same bytes.
func Marshal(m Manifest) ([]byte, error) {
	top := &yaml.Node{Kind: yaml.MappingNode}
	if m.Location != nil {
		top.Content = append(top.Content, scalarNode("source"), canonicalNode(locationMap(*m.Location)))
	}
	counts := map[string]any{"recipes": m.Recipes, "rows": m.Rows}
	if m.Filtered > 0 {
		counts["filtered"] = m.Filtered
	}
	top.Content = append(top.Content, scalarNode("counts"), canonicalNode(counts))
	arts := &yaml.Node{Kind: yaml.SequenceNode}
	for _, a := range m.Artifacts {
		arts.Content = append(arts.Content, canonicalNode(map[string]any{
			"kind":  a.Kind,
			"path":  filepath.ToSlash(a.Path),
			"bytes": a.Bytes,
		}))
	}
	top.Content = append(top.Content, scalarNode("artifacts"), arts)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(top); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')
	return out, nil
}

func locationMap(l source.Location) map[string]any {
	m := map[string]any{
		"owner":  l.Owner,
		"repo":   l.Repo,
		"branch": l.Branch,
		"path":   l.Path,
		"method": string(l.Method),
	}
	if l.DownloadURL != "" {
		m["downloadUrl"] = l.DownloadURL
	}
	return m
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func scalarFrom(v any) *yaml.Node {
	n := &yaml.Node{}
	_ = n.Encode(v)
	return n
}

func canonicalNode(v any) *yaml.Node {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.MappingNode}
	case map[string]any:
		return canonicalMapNode(x)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, it := range x {
			n.Content = append(n.Content, canonicalNode(it))
		}
		return n
	default:
		return scalarFrom(x)
	}
}

func canonicalMapNode(m map[string]any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Content = append(n.Content, scalarNode(k), canonicalNode(m[k]))
	}
	return n
}
