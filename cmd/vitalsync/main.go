// Command vitalsync runs and administers the VitalTrack sync server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "vitalsync:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
