package diagnose

import (
	"context"
	"fmt"
	"path/filepath"

	runpkg "github.com/GjhanAi/albion-recipes/cmd/recipesync/run"
	"github.com/GjhanAi/albion-recipes/internal/stage"
	"github.com/spf13/cobra"
)

// prepareEnv builds the starting envelope and deps. An --in envelope keeps
// its own meta when it has one.
func (o *options) prepareEnv(cmd *cobra.Command, action string) (stage.Envelope, stage.Deps, error) {
	s, err := o.flags.Settings()
	if err != nil {
		return stage.Envelope{}, stage.Deps{}, err
	}
	log := runpkg.NewLogger(s, cmd.ErrOrStderr())
	deps, err := runpkg.BuildDeps(s, log, nil)
	if err != nil {
		return stage.Envelope{}, stage.Deps{}, err
	}
	env := stage.Envelope{}
	if o.in != "" {
		if env, err = readEnvelope(o.in); err != nil {
			return stage.Envelope{}, stage.Deps{}, err
		}
	}
	if env.Meta == nil {
		env.Meta = runpkg.BuildMeta(s, action, o.flags.ConfigPath)
	}
	if o.inputPath != "" {
		env.Meta.InputPath = o.inputPath
	}
	return env, deps, nil
}

func (o *options) runSingle(cmd *cobra.Command) error {
	env, deps, err := o.prepareEnv(cmd, "diagnose")
	if err != nil {
		return err
	}
	return o.runStagesAndRender(cmd, env, deps, []string{o.stage})
}

func (o *options) runPrepared(cmd *cobra.Command) error {
	env, deps, err := o.prepareEnv(cmd, o.prepare)
	if err != nil {
		return err
	}
	stages, err := runpkg.PreparedActionStages(o.prepare, env.Meta)
	if err != nil {
		return err
	}
	if o.untilStage != "" {
		idx, err := findStageIndexByName(stages, o.untilStage, "--until-stage")
		if err != nil {
			return err
		}
		stages = stages[:idx+1]
	}
	return o.runStagesAndRender(cmd, env, deps, stages)
}

func findStageIndexByName(stages []string, stageName string, flagName string) (int, error) {
	for i, cur := range stages {
		if cur == stageName {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown %s: %s", flagName, stageName)
}

func (o *options) runStagesAndRender(cmd *cobra.Command, in stage.Envelope, deps stage.Deps, stages []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := in
	for i, name := range stages {
		seq := i + 1
		if err := o.dumpStageBoundary(seq, name, "in", out); err != nil {
			return err
		}
		next, err := stage.Run(ctx, name, out, deps)
		if err != nil {
			return err
		}
		if err := o.dumpStageBoundary(seq, name, "out", next); err != nil {
			return err
		}
		out = next
	}
	if o.dumpOut != "" {
		if err := writeJSONFile(o.dumpOut, toWire(out)); err != nil {
			return err
		}
	}
	return printEnvelopeOneLine(cmd.OutOrStdout(), out)
}

func (o *options) dumpStageBoundary(seq int, stageName string, suffix string, env stage.Envelope) error {
	if o.dumpDir == "" {
		return nil
	}
	base := fmt.Sprintf("%03d_%s_%s.json", seq, stageName, suffix)
	return writeJSONFile(filepath.Join(o.dumpDir, base), toWire(env))
}
