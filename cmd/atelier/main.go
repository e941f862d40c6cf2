package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"atelier/internal/ops"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(os.Stderr, err))
}

// exitCode reports err on stderr and maps it to a process status. Notices
// such as a dismissed dialog or an empty history still exit cleanly.
func exitCode(stderr io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case ops.Informational(err):
		fmt.Fprintln(stderr, err)
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	}
	fmt.Fprintln(stderr, "atelier:", err)
	switch ops.Kind(err) {
	case "validation", "malformed_name":
		return 2
	case "configuration":
		return 3
	}
	return 1
}
