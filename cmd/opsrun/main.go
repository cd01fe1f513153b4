package main

import (
	"log/slog"
	"os"

	"github.com/arjunmalhotra/opsrun/internal/cli"
	"github.com/arjunmalhotra/opsrun/internal/util"
)

func main() {
	ctx := util.ShutdownContext()

	if err := cli.Execute(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
