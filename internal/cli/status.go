package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Account string
	Audit   int
}

// StatusResult is the output of the status command.
type StatusResult struct {
	Account       string       `json:"account"`
	SchemaVersion int          `json:"schemaVersion"`
	Counts        store.Stats  `json:"counts"`
	Audit         []AuditEntry `json:"audit,omitempty"`
}

// AuditEntry is the printable form of an audit log row.
type AuditEntry struct {
	Action      string    `json:"action"`
	EntityClass string    `json:"entityClass,omitempty"`
	EntityID    string    `json:"entityId,omitempty"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show an account's record counts and recent audit entries",
		Long: `Show live record counts per class, tombstones, the global change
sequence and, with --audit, the newest audit log entries of an account.

Example:
  vitalsync status --account acct-1 --audit 20`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Account, "account", "", "account to inspect (required)")
	cmd.Flags().IntVar(&opts.Audit, "audit", 0, "number of recent audit entries to show")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	stats, err := s.engine.Stats(ctx, opts.Account)
	if err != nil {
		_ = s.out.SyncError(err)
		return WrapExitError(ExitFailure, "status failed", err)
	}
	version, err := s.store.SchemaVersion(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read schema version", err)
	}

	res := StatusResult{Account: opts.Account, SchemaVersion: version, Counts: stats}
	if opts.Audit > 0 {
		entries, err := s.store.ListAudit(ctx, opts.Account, opts.Audit)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read audit log", err)
		}
		for _, e := range entries {
			res.Audit = append(res.Audit, AuditEntry{
				Action:      e.Action,
				EntityClass: string(e.EntityClass),
				EntityID:    e.EntityID,
				Details:     e.Details,
				CreatedAt:   e.CreatedAt,
			})
		}
	}

	return s.out.Print(res, func(w io.Writer) { printStatus(w, res) })
}

func printStatus(w io.Writer, res StatusResult) {
	fmt.Fprintf(w, "Account:     %s\n", res.Account)
	fmt.Fprintf(w, "Schema:      v%d\n", res.SchemaVersion)
	fmt.Fprintf(w, "Change seq:  %d\n", res.Counts.Seq)
	fmt.Fprintf(w, "Groups:      %d\n", res.Counts.Groups)
	fmt.Fprintf(w, "Items:       %d\n", res.Counts.Items)
	fmt.Fprintf(w, "Orders:      %d\n", res.Counts.Orders)
	fmt.Fprintf(w, "Tombstones:  %d\n", res.Counts.Tombstones)
	fmt.Fprintf(w, "Audit log:   %d\n", res.Counts.AuditLog)
	if len(res.Audit) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, e := range res.Audit {
		fmt.Fprintf(w, "%s  %-13s %s %s %s\n", e.CreatedAt.Format(time.RFC3339), e.Action, e.EntityClass, e.EntityID, e.Details)
	}
}
