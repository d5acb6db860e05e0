package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

// PullOptions holds flags for the pull command.
type PullOptions struct {
	*RootOptions
	Account string
	Cursor  string
	Classes []string
	Limit   int
}

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PullOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Show changes after a cursor",
		Long: `Show the records and deletions an account would receive on pull.

Without --cursor the pull starts from the beginning. The printed cursor
is the one to pass on the next call.

Examples:
  vitalsync pull --account acct-1
  vitalsync pull --account acct-1 --cursor djE6MTI --class item --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Account, "account", "", "account to pull as (required)")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "cursor from a previous pull")
	cmd.Flags().StringSliceVar(&opts.Classes, "class", nil, "restrict to entity classes (group,item,order)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (default sync.pull_page_size)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runPull(opts *PullOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	req := model.PullRequest{Cursor: &opts.Cursor, Limit: opts.Limit}
	for _, c := range opts.Classes {
		req.EntityClasses = append(req.EntityClasses, model.EntityClass(c))
	}

	resp, err := s.engine.Pull(cmd.Context(), opts.Account, req)
	if err != nil {
		_ = s.out.SyncError(err)
		return WrapExitError(ExitFailure, "pull rejected", err)
	}
	return s.out.Print(resp, func(w io.Writer) { printPull(w, resp) })
}

func printPull(w io.Writer, resp model.PullResponse) {
	for _, g := range resp.Records.Group {
		fmt.Fprintf(w, "group  %s  %s\n", g.ID, g.Name)
	}
	for _, it := range resp.Records.Item {
		fmt.Fprintf(w, "item   %s  %s (%d %s)\n", it.ID, it.Name, it.Quantity, it.Unit)
	}
	for _, o := range resp.Records.Order {
		fmt.Fprintf(w, "order  %s  %s [%s]\n", o.ID, o.OrderID, o.Status)
	}
	for _, id := range resp.DeletedIDs {
		fmt.Fprintf(w, "deleted %s\n", id)
	}
	fmt.Fprintf(w, "\n%d record(s), %d deletion(s)\n", resp.Records.Len(), len(resp.DeletedIDs))
	fmt.Fprintf(w, "cursor: %s\n", resp.Cursor)
	if resp.HasMore {
		fmt.Fprintln(w, "more changes pending: pull again with this cursor")
	}
}
