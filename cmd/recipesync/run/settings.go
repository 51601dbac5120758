package run

import (
	"io"
	"os"
	"time"

	"github.com/GjhanAi/albion-recipes/internal/config"
	"github.com/GjhanAi/albion-recipes/internal/logger"
	"github.com/GjhanAi/albion-recipes/internal/source"
	"github.com/GjhanAi/albion-recipes/internal/stage"
	"github.com/spf13/cobra"
)

// Flags are the overrides shared by every pipeline command. Zero values keep
// whatever the config file (or the defaults) say.
type Flags struct {
	ConfigPath string
	OutDir     string
	TokenEnv   string
	Timeout    time.Duration
	LogLevel   string
	SQLite     string
	Progress   bool
}

// Bind registers the shared flags on cmd.
func (f *Flags) Bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.ConfigPath, "config", "c", "", "Path to config file (.cue)")
	fl.StringVar(&f.OutDir, "out-dir", "", "Artifact directory (overrides output.dir)")
	fl.StringVar(&f.TokenEnv, "token-env", "", "Environment variable holding the GitHub token")
	fl.DurationVar(&f.Timeout, "timeout", 0, "Per-request timeout (overrides http.timeoutMs)")
	fl.StringVar(&f.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	fl.StringVar(&f.SQLite, "sqlite", "", "Also export rows to this SQLite file (relative to the artifact directory)")
	fl.BoolVar(&f.Progress, "progress", false, "Print stage progress lines to stderr")
}

// Settings loads the config and applies flag overrides.
func (f *Flags) Settings() (config.Settings, error) {
	s, err := config.Load(f.ConfigPath)
	if err != nil {
		return config.Settings{}, err
	}
	if f.OutDir != "" {
		s.Output.Dir = f.OutDir
	}
	if f.TokenEnv != "" {
		s.HTTP.TokenEnv = f.TokenEnv
	}
	if f.Timeout > 0 {
		s.HTTP.TimeoutMs = int(f.Timeout / time.Millisecond)
	}
	if f.LogLevel != "" {
		s.Log.Level = f.LogLevel
	}
	if f.SQLite != "" {
		s.Output.SQLite = f.SQLite
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

// NewLogger builds the run logger from settings.
func NewLogger(s config.Settings, w io.Writer) logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = s.Log.Level
	cfg.JSON = s.Log.JSON
	if w != nil {
		cfg.Output = w
	}
	return logger.New(cfg)
}

// BuildMeta turns settings into the envelope meta for action.
func BuildMeta(s config.Settings, action, cfgPath string) *stage.Meta {
	cands := make([]source.Candidate, 0, len(s.Sources))
	for _, src := range s.Sources {
		cands = append(cands, source.Candidate{Owner: src.Owner, Repo: src.Repo, Branch: src.Branch, Path: src.Path})
	}
	meta := &stage.Meta{
		ConfigPath: cfgPath,
		Config:     &stage.ConfigMeta{ConfigVersion: s.ConfigVersion, Action: action},
		Sources:    cands,
		LuaSandbox: &stage.LuaSandboxMeta{
			TimeoutMs:           s.LuaSandbox.TimeoutMs,
			InstructionLimit:    s.LuaSandbox.InstructionLimit,
			MemoryLimitBytes:    s.LuaSandbox.MemoryLimitBytes,
			Libs:                stage.LuaSandboxLibsMeta{Base: true, Table: true, String: true, Math: true},
			DeterministicRandom: true,
		},
		Output: &stage.OutputMeta{
			Raw:      s.OutputPath(s.Output.Raw),
			FlatJSON: s.OutputPath(s.Output.FlatJSON),
			FlatCSV:  s.OutputPath(s.Output.FlatCSV),
			Manifest: s.OutputPath(s.Output.Manifest),
		},
	}
	if s.Output.SQLite != "" {
		meta.Output.SQLite = s.OutputPath(s.Output.SQLite)
	}
	if s.Filter.Inline != "" {
		meta.Lua = &stage.LuaMeta{FilterInline: s.Filter.Inline}
	}
	return meta
}

// BuildDeps creates the GitHub client. The token is read here, once, from
// the configured environment variable.
func BuildDeps(s config.Settings, log logger.Logger, getenv func(string) string) (stage.Deps, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	token := ""
	if s.HTTP.TokenEnv != "" {
		token = getenv(s.HTTP.TokenEnv)
	}
	c, err := source.New(source.Options{
		Token:        token,
		UserAgent:    s.HTTP.UserAgent,
		Timeout:      time.Duration(s.HTTP.TimeoutMs) * time.Millisecond,
		APIBaseURL:   s.HTTP.APIBaseURL,
		RawTemplates: s.HTTP.RawTemplates,
		Directories:  s.Discovery.Directories,
		Pattern:      s.Discovery.Pattern,
		PreferDir:    s.Discovery.PreferDir,
		MinBytes:     s.HTTP.MinBytes,
		Log:          log,
	})
	if err != nil {
		return stage.Deps{}, err
	}
	return stage.Deps{Resolver: c, Fetcher: c, Log: log}, nil
}
