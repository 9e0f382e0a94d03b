package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/danmuck/lifxctl/cmd/lifxctl/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lifxctl: %v\n", err)
		os.Exit(1)
	}
}
