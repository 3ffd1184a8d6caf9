package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hsebcm/calendar-sync/internal/model"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync across all enabled sources",
		Long: `Fetch every enabled source, normalize, deduplicate and sort the events,
and print the result.

Exits 1 when every source failed.

Example:
  hsebcm sync --config hsebcm.yaml
  hsebcm sync --format json > events.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	return cmd
}

func runSync(ctx context.Context, opts *RootOptions, out, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, opts, logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.buildSyncer()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build sources", err)
	}

	result, err := s.SyncAll(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "sync failed", err)
	}

	if err := printResult(out, opts.Format, result); err != nil {
		return err
	}

	if !result.Success {
		return NewExitError(ExitFailure, fmt.Sprintf("sync failed: all %d sources failed", len(result.Errors)))
	}
	return nil
}

func printResult(w io.Writer, format string, result model.SyncResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	status := "ok"
	switch {
	case !result.Success:
		status = "failed"
	case result.Degraded():
		status = "degraded"
	}
	fmt.Fprintf(w, "sync %s: %d events, %d failed sources (run %s)\n",
		status, len(result.Events), len(result.Errors), result.RunID)

	for _, ev := range result.Events {
		dates := ev.Start.Format(model.DateLayout)
		if !ev.End.Equal(ev.Start) {
			dates += ".." + ev.End.Format(model.DateLayout)
		}
		fmt.Fprintf(w, "  %-22s %-15s %-6s %-6s %s\n",
			dates, ev.Category, ev.Priority, ev.SourceID, ev.Title)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  error %s: %s\n", e.Source, strings.TrimSpace(e.Message))
	}
	return nil
}
