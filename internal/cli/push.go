package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/engine"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

// PushOptions holds flags for the push command.
type PushOptions struct {
	*RootOptions
	Account string
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PushOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "push <ops.json>",
		Short: "Apply a batch of sync operations",
		Long: `Apply a batch of sync operations directly to the database.

The file holds either a push request body ({"operations": [...]}) or a
bare array of operations. Use "-" to read from stdin.

Exit codes:
  0 - Every operation succeeded
  1 - The request or at least one operation failed
  2 - Command error (unreadable file, database not found, etc.)

Examples:
  vitalsync push --account acct-1 queued.json
  cat queued.json | vitalsync push --account acct-1 --format json -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Account, "account", "", "account to push as (required)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runPush(opts *PushOptions, path string, cmd *cobra.Command) error {
	ops, err := readOperations(path, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read operations", err)
	}

	s, err := openSession(opts.RootOptions, cmd, engine.WithSink(engine.LogSink{}))
	if err != nil {
		return err
	}
	defer s.Close()

	s.out.VerboseLog("Pushing %d operation(s) as %s", len(ops), opts.Account)
	resp, err := s.engine.Push(cmd.Context(), opts.Account, model.PushRequest{Operations: ops})
	if err != nil {
		_ = s.out.SyncError(err)
		return WrapExitError(ExitFailure, "push rejected", err)
	}

	if err := s.out.Print(resp, func(w io.Writer) { printPush(w, resp) }); err != nil {
		return err
	}
	if resp.ErrorCount > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d operation(s) failed", resp.ErrorCount))
	}
	return nil
}

// readOperations decodes a push body or a bare operation array.
func readOperations(path string, stdin io.Reader) ([]model.SyncOperation, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var ops []model.SyncOperation
		if err := json.Unmarshal(trimmed, &ops); err != nil {
			return nil, fmt.Errorf("parse operations: %w", err)
		}
		return ops, nil
	}
	var req model.PushRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, fmt.Errorf("parse push request: %w", err)
	}
	return req.Operations, nil
}

func printPush(w io.Writer, resp model.PushResponse) {
	for _, r := range resp.Results {
		if r.Success {
			fmt.Fprintf(w, "✓ %s %s\n", r.OperationID, r.EntityID)
			for _, id := range r.Deleted {
				fmt.Fprintf(w, "  deleted %s\n", id)
			}
			continue
		}
		msg := r.Error.Message
		if r.Error.Field != "" {
			msg = r.Error.Field + ": " + msg
		}
		fmt.Fprintf(w, "✗ %s [%s] %s\n", r.OperationID, r.Error.Code, msg)
	}
	fmt.Fprintf(w, "\n%d succeeded, %d failed\n", resp.SuccessCount, resp.ErrorCount)
}
