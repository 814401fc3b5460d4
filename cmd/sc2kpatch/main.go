// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Sc2kpatch applies verified binary patches to SimCity 2000 Network
// Edition game files. Run "sc2kpatch --help" for the command list.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sc2knet/sc2kpatch/cmd/sc2kpatch/commands"
	"github.com/sc2knet/sc2kpatch/lib/process"
)

func main() {
	process.Exit(run())
}

func run() error {
	// Interrupting stops jobs that have not started; files already
	// committed stay committed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root(os.Stdout, os.Stderr).Execute(ctx, os.Args[1:])
}
