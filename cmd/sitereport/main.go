// Command sitereport assembles SEAD site analyses. It renders one site as
// JSON, lists the registered analysis modules, or serves the report API.
package main

import (
	"context"
	"fmt"
	"os"
)

var exitFunc = os.Exit

func main() {
	if err := execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "sitereport:", err)
		exitFunc(1)
	}
}

func execute(ctx context.Context, args []string) error {
	cmd := newRootCmd(&app{stdout: os.Stdout, stderr: os.Stderr})
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
