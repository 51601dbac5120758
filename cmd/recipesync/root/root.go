package root

import (
	"context"

	"github.com/GjhanAi/albion-recipes/cmd/recipesync/diagnose"
	"github.com/GjhanAi/albion-recipes/cmd/recipesync/run"
	"github.com/GjhanAi/albion-recipes/cmd/recipesync/version"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for recipesync.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipesync",
		Short: "Locate the Albion Online recipe dump and export it as flat rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help when no subcommand is provided.
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Subcommands
	cmd.AddCommand(version.VersionCmd)
	cmd.AddCommand(run.NewSyncCmd())
	cmd.AddCommand(run.NewResolveCmd())
	cmd.AddCommand(run.NewNormalizeCmd())
	cmd.AddCommand(diagnose.NewCmd())

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	return ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the root command with provided args under ctx.
func ExecuteContext(ctx context.Context, args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
