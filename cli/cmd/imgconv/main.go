// Command imgconv converts images between raster formats, one file at a
// time or a whole folder at once.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"imageConverter/cli/commands"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := commands.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "imgconv: %v\n", err)
		return 1
	}
	return 0
}
