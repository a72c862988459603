// Package main provides the entry point for sparcsim.
// sparcsim is a clock-synchronized simulator of a superscalar SPARC
// pipeline front end.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var keys io.Reader
	if term.IsTerminal(int(os.Stdin.Fd())) {
		keys = os.Stdin
	}

	cmd := newRootCmd(keys)
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
