package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/codalotl/blockdiff/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code, _ := cli.Run(os.Args, &cli.RunOptions{Context: ctx})
	stop()
	os.Exit(code)
}
