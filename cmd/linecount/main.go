package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nemanja-m/linecount/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewLineCountCommand())
	stop()
	os.Exit(code)
}
