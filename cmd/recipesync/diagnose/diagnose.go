package diagnose

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	runpkg "github.com/GjhanAi/albion-recipes/cmd/recipesync/run"
	"github.com/GjhanAi/albion-recipes/internal/recipe"
	"github.com/GjhanAi/albion-recipes/internal/stage"
	"github.com/spf13/cobra"
)

type options struct {
	flags      runpkg.Flags
	stage      string
	in         string
	prepare    string
	untilStage string
	inputPath  string
	dumpOut    string
	dumpDir    string
}

// NewCmd creates `recipesync diagnose`.
func NewCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:           "diagnose",
		Short:         "Run one stage, or a prepared pipeline prefix, and print the envelope",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.prepare != "" {
				return o.runPrepared(cmd)
			}
			if o.stage == "" {
				return errors.New("missing required flag: --stage")
			}
			return o.runSingle(cmd)
		},
	}
	o.flags.Bind(cmd)
	fl := cmd.Flags()
	fl.StringVar(&o.stage, "stage", "", "Stage name")
	fl.StringVar(&o.in, "in", "", "Path to input envelope JSON (a --dump-dir file replays as-is)")
	fl.StringVar(&o.prepare, "prepare", "", "Prepare an action pipeline: sync|resolve|normalize")
	fl.StringVar(&o.untilStage, "until-stage", "", "Run the prepared pipeline through this stage (inclusive)")
	fl.StringVar(&o.inputPath, "input", "", "Raw dump path for the normalize action")
	fl.StringVar(&o.dumpOut, "dump-out", "", "Path to write the output envelope JSON")
	fl.StringVar(&o.dumpDir, "dump-dir", "", "Directory for per-stage dumps (<seq>_<stage>_{in,out}.json)")
	return cmd
}

// wireEnvelope is the diagnose form of an envelope. It carries the raw dump as
// base64 so that dumps replay into decode-recipes and normalize-rows.
type wireEnvelope struct {
	stage.Envelope
	Raw []byte `json:"raw,omitempty"`
}

func toWire(env stage.Envelope) wireEnvelope {
	return wireEnvelope{Envelope: env, Raw: env.Raw}
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dump dir: %w", err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readEnvelope(path string) (stage.Envelope, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return stage.Envelope{}, fmt.Errorf("failed to read input: %w", err)
	}
	var w wireEnvelope
	if err := json.Unmarshal(b, &w); err != nil {
		return stage.Envelope{}, fmt.Errorf("invalid input JSON: %v", err)
	}
	env := w.Envelope
	env.Raw = w.Raw
	// An undecodable raw is left for decode-recipes to report.
	if len(env.Recipes) == 0 && len(env.Raw) > 0 {
		if recs, err := recipe.DecodeRaw(env.Raw); err == nil {
			env.Recipes = recs
		}
	}
	return env, nil
}

func printEnvelopeOneLine(w io.Writer, env stage.Envelope) error {
	b, err := json.Marshal(toWire(env))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
