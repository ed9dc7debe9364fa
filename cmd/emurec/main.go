package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/emudata/emurec/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, exitResult := cli.Parse(os.Args)
	if exitResult != nil {
		exitResult.Print()
		return exitResult.ExitCode
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return cli.Run(ctx, cfg)
}
