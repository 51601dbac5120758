package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"

	"github.com/GjhanAi/albion-recipes/internal/buildinfo"
	"github.com/GjhanAi/albion-recipes/internal/source"
)

// Settings is the full run configuration. Default returns a usable value; a
// CUE file only needs to name what it changes.
type Settings struct {
	ConfigVersion string
	Sources       []Source
	Discovery     Discovery
	HTTP          HTTP
	Output        Output
	Filter        Filter
	LuaSandbox    LuaSandbox
	Log           Log
}

// Source is one candidate repository, in priority order.
type Source struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Path   string `json:"path"`
}

// Discovery tunes the listing and tree strategies.
type Discovery struct {
	Directories []string
	Pattern     string
	PreferDir   string
}

// HTTP holds outbound request settings.
type HTTP struct {
	TimeoutMs    int
	UserAgent    string
	TokenEnv     string
	APIBaseURL   string
	RawTemplates []string
	MinBytes     int
}

// Output names the artifacts. Empty SQLite disables the database export.
type Output struct {
	Dir      string
	Raw      string
	FlatJSON string
	FlatCSV  string
	Manifest string
	SQLite   string
}

// Filter holds the optional Lua row predicate.
type Filter struct {
	Inline string
}

// LuaSandbox bounds the filter runtime.
type LuaSandbox struct {
	TimeoutMs        int
	InstructionLimit int
	MemoryLimitBytes int
}

// Log selects level and format.
type Log struct {
	Level string
	JSON  bool
}

// DefaultMinBytes is the smallest body accepted as a full recipe dump. A
// truncated mirror or an empty array stays below it.
const DefaultMinBytes = 2000000

// Default returns the built-in configuration.
func Default() Settings {
	return Settings{
		ConfigVersion: CurrentConfigVersion,
		Sources:       defaultSources(),
		Discovery: Discovery{
			Directories: []string{"formatted"},
			Pattern:     "recipes*.json",
			PreferDir:   "formatted",
		},
		HTTP: HTTP{
			TimeoutMs:  15000,
			UserAgent:  buildinfo.UserAgent(),
			TokenEnv:   "GITHUB_TOKEN",
			APIBaseURL: "https://api.github.com/",
			MinBytes:   DefaultMinBytes,
			RawTemplates: []string{
				"https://raw.githubusercontent.com/{owner}/{repo}/{branch}/{path}",
				"https://github.com/{owner}/{repo}/raw/{branch}/{path}",
				"https://cdn.jsdelivr.net/gh/{owner}/{repo}@{branch}/{path}",
			},
		},
		Output: Output{
			Dir:      "data",
			Raw:      "recipes.json",
			FlatJSON: "recipes.flat.json",
			FlatCSV:  "recipes.flat.csv",
			Manifest: "recipes.manifest.yaml",
		},
		LuaSandbox: LuaSandbox{
			TimeoutMs:        2000,
			InstructionLimit: 1000000,
			MemoryLimitBytes: 8388608,
		},
		Log: Log{Level: "info"},
	}
}

func defaultSources() []Source {
	cands := source.DefaultCandidates()
	out := make([]Source, len(cands))
	for i, c := range cands {
		out[i] = Source{Owner: c.Owner, Repo: c.Repo, Branch: c.Branch, Path: c.Path}
	}
	return out
}

// Load reads a CUE config on top of Default. An empty path returns Default.
func Load(path string) (Settings, error) {
	if path == "" {
		return Default(), nil
	}
	v, err := compileCUE(path)
	if err != nil {
		return Settings{}, err
	}
	return fromValue(v)
}

// Parse is Load for in-memory CUE source.
func Parse(data []byte) (Settings, error) {
	v, err := compileBytes(data)
	if err != nil {
		return Settings{}, err
	}
	return fromValue(v)
}

func fromValue(v cue.Value) (Settings, error) {
	if err := requireStringField(v, "configVersion"); err != nil {
		return Settings{}, err
	}
	s := Default()
	lookupString(v, "configVersion", &s.ConfigVersion)
	if err := checkConfigVersion(s.ConfigVersion); err != nil {
		return Settings{}, err
	}
	if err := parseSourcesSection(v, &s); err != nil {
		return Settings{}, err
	}
	if err := parseDiscoverySection(v, &s.Discovery); err != nil {
		return Settings{}, err
	}
	if err := parseHTTPSection(v, &s.HTTP); err != nil {
		return Settings{}, err
	}
	parseOutputSection(v, &s.Output)
	lookupString(v, "filter.inline", &s.Filter.Inline)
	lookupInt(v, "luaSandbox.timeoutMs", &s.LuaSandbox.TimeoutMs)
	lookupInt(v, "luaSandbox.instructionLimit", &s.LuaSandbox.InstructionLimit)
	lookupInt(v, "luaSandbox.memoryLimitBytes", &s.LuaSandbox.MemoryLimitBytes)
	lookupString(v, "log.level", &s.Log.Level)
	lookupBool(v, "log.json", &s.Log.JSON)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// parseSourcesSection replaces the default candidates when sources is set.
func parseSourcesSection(v cue.Value, s *Settings) error {
	sv := v.LookupPath(cue.ParsePath("sources"))
	if !sv.Exists() {
		return nil
	}
	if sv.Kind() != cue.ListKind {
		return fmt.Errorf("invalid type for field: sources (expected list)")
	}
	var srcs []Source
	if err := sv.Decode(&srcs); err != nil {
		return fmt.Errorf("invalid value for sources: %v", err)
	}
	for i := range srcs {
		if srcs[i].Branch == "" {
			srcs[i].Branch = "master"
		}
	}
	s.Sources = srcs
	return nil
}

func parseDiscoverySection(v cue.Value, d *Discovery) error {
	if err := lookupStrings(v, "discovery.directories", &d.Directories); err != nil {
		return err
	}
	lookupString(v, "discovery.pattern", &d.Pattern)
	lookupString(v, "discovery.preferDir", &d.PreferDir)
	return nil
}

func parseHTTPSection(v cue.Value, h *HTTP) error {
	lookupInt(v, "http.timeoutMs", &h.TimeoutMs)
	lookupString(v, "http.userAgent", &h.UserAgent)
	lookupString(v, "http.tokenEnv", &h.TokenEnv)
	lookupString(v, "http.apiBaseURL", &h.APIBaseURL)
	lookupInt(v, "http.minBytes", &h.MinBytes)
	return lookupStrings(v, "http.rawTemplates", &h.RawTemplates)
}

func parseOutputSection(v cue.Value, o *Output) {
	lookupString(v, "output.dir", &o.Dir)
	lookupString(v, "output.raw", &o.Raw)
	lookupString(v, "output.flatJSON", &o.FlatJSON)
	lookupString(v, "output.flatCSV", &o.FlatCSV)
	lookupString(v, "output.manifest", &o.Manifest)
	lookupString(v, "output.sqlite", &o.SQLite)
}

// Validate reports the first structural problem in s.
func (s Settings) Validate() error {
	if len(s.Sources) == 0 {
		return fmt.Errorf("invalid config: at least one source is required")
	}
	for i, src := range s.Sources {
		if strings.TrimSpace(src.Owner) == "" || strings.TrimSpace(src.Repo) == "" {
			return fmt.Errorf("invalid config: sources[%d]: owner and repo are required", i)
		}
	}
	if s.HTTP.TimeoutMs <= 0 {
		return fmt.Errorf("invalid config: http.timeoutMs must be positive")
	}
	if s.HTTP.MinBytes < 0 {
		return fmt.Errorf("invalid config: http.minBytes must not be negative")
	}
	for _, name := range []string{s.Output.Raw, s.Output.FlatJSON, s.Output.FlatCSV, s.Output.Manifest} {
		if name == "" {
			return fmt.Errorf("invalid config: output file names must not be empty")
		}
	}
	return nil
}

// OutputPath joins an artifact name onto the output directory.
func (s Settings) OutputPath(name string) string {
	if filepath.IsAbs(name) || s.Output.Dir == "" {
		return name
	}
	return filepath.Join(s.Output.Dir, name)
}
