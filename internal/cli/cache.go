package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the payload cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty both cache tiers",
		Long: `Remove every cached source payload from the configured cache backend,
forcing the next sync to fetch from upstream.

Example:
  hsebcm cache clear --config hsebcm.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := newApp(ctx, rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Clear(ctx); err != nil {
				return WrapExitError(ExitCommandError, "failed to clear cache", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cache cleared (%s)\n", a.cfg.Cache.Backend)
			return nil
		},
	})

	return cmd
}
