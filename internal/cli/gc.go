package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// GCOptions holds flags for the gc command.
type GCOptions struct {
	*RootOptions
	Retention time.Duration
}

// GCResult is the output of the gc command.
type GCResult struct {
	Purged    int64  `json:"purged"`
	Retention string `json:"retention"`
}

// NewGCCommand creates the gc command.
func NewGCCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GCOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Purge expired tombstones",
		Long: `Hard-delete tombstones and deleted rows older than the retention window.

A client whose cursor is older than the window never learns about the
purged deletions and must re-pull from the beginning.

Examples:
  vitalsync gc
  vitalsync gc --retention 168h`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGC(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Retention, "retention", 0, "retention window (default sync.tombstone_retention)")

	return cmd
}

func runGC(opts *GCOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	retention := opts.Retention
	if retention <= 0 {
		retention = s.cfg.Sync.TombstoneRetention
	}
	n, err := s.engine.GarbageCollect(cmd.Context(), retention)
	if err != nil {
		return WrapExitError(ExitFailure, "garbage collection failed", err)
	}

	res := GCResult{Purged: n, Retention: retention.String()}
	return s.out.Print(res, func(w io.Writer) {
		fmt.Fprintf(w, "Purged %d tombstone(s) older than %s\n", res.Purged, res.Retention)
	})
}
