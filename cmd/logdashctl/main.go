package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

type cli struct {
	Globals

	Upload   uploadCmd   `cmd:"" help:"Upload a log file for parsing."`
	Overview overviewCmd `cmd:"" help:"Print the loaded dataset, its categories and headline counters."`
	Report   reportCmd   `cmd:"" help:"Fetch a single report with the given selections."`
	Serve    serveCmd    `cmd:"" help:"Serve the upload and dashboard views."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("logdashctl"),
		kong.Description("Log analytics dashboard client."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&c.Globals)
	kctx.FatalIfErrorf(err)
}
