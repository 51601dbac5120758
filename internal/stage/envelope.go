package stage

import (
	"github.com/GjhanAi/albion-recipes/internal/recipe"
	"github.com/GjhanAi/albion-recipes/internal/source"
)

// Error is a sanitized, non-fatal stage problem reported in the envelope.
type Error struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// ConfigMeta holds validated config essentials.
type ConfigMeta struct {
	ConfigVersion string `json:"configVersion"`
	Action        string `json:"action"`
}

// LuaMeta holds the optional row predicate.
type LuaMeta struct {
	FilterInline string `json:"filterInline,omitempty"`
}

// LuaSandboxLibsMeta selects which standard Lua libraries are opened.
type LuaSandboxLibsMeta struct {
	Base   bool `json:"base"`
	Table  bool `json:"table"`
	String bool `json:"string"`
	Math   bool `json:"math"`
}

// LuaSandboxMeta bounds the filter runtime. Negative values mean "use the
// default"; zero disables the limit.
type LuaSandboxMeta struct {
	TimeoutMs           int                `json:"timeoutMs"`
	InstructionLimit    int                `json:"instructionLimit"`
	MemoryLimitBytes    int                `json:"memoryLimitBytes"`
	Libs                LuaSandboxLibsMeta `json:"libs"`
	DeterministicRandom bool               `json:"deterministicRandom"`
}

// OutputMeta names the artifacts written by write-artifacts. Paths are final;
// an empty path skips that artifact.
type OutputMeta struct {
	Raw      string `json:"raw,omitempty"`
	FlatJSON string `json:"flatJson,omitempty"`
	FlatCSV  string `json:"flatCsv,omitempty"`
	Manifest string `json:"manifest,omitempty"`
	SQLite   string `json:"sqlite,omitempty"`
}

// Meta carries run settings between stages with deterministic JSON order.
type Meta struct {
	Stage      string             `json:"stage,omitempty"`
	ConfigPath string             `json:"configPath,omitempty"`
	Config     *ConfigMeta        `json:"config,omitempty"`
	Sources    []source.Candidate `json:"sources,omitempty"`
	InputPath  string             `json:"inputPath,omitempty"`
	Workers    int                `json:"workers,omitempty"`
	Lua        *LuaMeta           `json:"lua,omitempty"`
	LuaSandbox *LuaSandboxMeta    `json:"luaSandbox,omitempty"`
	Output     *OutputMeta        `json:"output,omitempty"`
}

// Artifact is one file written by write-artifacts.
type Artifact struct {
	Kind  string `json:"kind"`
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// Envelope is the contract passed between stages. Raw and Recipes are large
// and transient, so they stay out of the JSON form.
type Envelope struct {
	Location  *source.Location   `json:"location,omitempty"`
	Raw       []byte             `json:"-"`
	Recipes   []recipe.RawRecipe `json:"-"`
	Rows      []recipe.FlatRow   `json:"rows"`
	Filtered  int                `json:"filtered,omitempty"`
	Artifacts []Artifact         `json:"artifacts,omitempty"`
	Meta      *Meta              `json:"meta,omitempty"`
	Errors    []Error            `json:"errors,omitempty"`
}
