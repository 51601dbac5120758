package run

import (
	"context"
	"fmt"

	"github.com/GjhanAi/albion-recipes/internal/logger"
	"github.com/GjhanAi/albion-recipes/internal/stage"
	"github.com/spf13/cobra"
)

// NewSyncCmd creates `recipesync sync`.
func NewSyncCmd() *cobra.Command {
	var flags Flags
	cmd := &cobra.Command{
		Use:           "sync",
		Short:         "Resolve, download and normalize the recipe dump",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := runAction(cmd, &flags, ActionSync, nil)
			if err != nil {
				return err
			}
			// Success output must be a single JSON line.
			return writeJSONLine(cmd.OutOrStdout(), summarize(out))
		},
	}
	flags.Bind(cmd)
	return cmd
}

// NewResolveCmd creates `recipesync resolve`.
func NewResolveCmd() *cobra.Command {
	var flags Flags
	cmd := &cobra.Command{
		Use:           "resolve",
		Short:         "Find the recipe dump and print its location",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := runAction(cmd, &flags, ActionResolve, nil)
			if err != nil {
				return err
			}
			return writeJSONLine(cmd.OutOrStdout(), out.Location)
		},
	}
	flags.Bind(cmd)
	return cmd
}

// NewNormalizeCmd creates `recipesync normalize`.
func NewNormalizeCmd() *cobra.Command {
	var flags Flags
	var inPath string
	cmd := &cobra.Command{
		Use:           "normalize",
		Short:         "Normalize a previously downloaded dump",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" {
				return fmt.Errorf("missing required flag: --in")
			}
			out, err := runAction(cmd, &flags, ActionNormalize, func(m *stage.Meta) {
				m.InputPath = inPath
			})
			if err != nil {
				return err
			}
			return writeJSONLine(cmd.OutOrStdout(), summarize(out))
		},
	}
	flags.Bind(cmd)
	cmd.Flags().StringVar(&inPath, "in", "", "Path to a raw recipes JSON dump")
	return cmd
}

func runAction(cmd *cobra.Command, flags *Flags, action string, mutate func(*stage.Meta)) (stage.Envelope, error) {
	s, err := flags.Settings()
	if err != nil {
		return stage.Envelope{}, err
	}
	log := NewLogger(s, cmd.ErrOrStderr())
	deps, err := BuildDeps(s, log, nil)
	if err != nil {
		return stage.Envelope{}, err
	}
	meta := BuildMeta(s, action, flags.ConfigPath)
	if mutate != nil {
		mutate(meta)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.ContextWithLogger(ctx, log)
	progress := newProgressReporter(flags.Progress, cmd.ErrOrStderr())
	out, err := executePipeline(ctx, stage.Envelope{Meta: meta}, deps, progress)
	if err != nil {
		log.Error("run failed", "action", action, "error", err)
		return stage.Envelope{}, evaluateRunExit(err)
	}
	return out, nil
}
