package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-logdash/components/dashboard"
	"github.com/goliatone/go-logdash/components/dashboard/httpapi"
	"github.com/goliatone/go-logdash/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type serveCmd struct {
	Listen    string `help:"Listen address (overrides config)."`
	AccessLog bool   `name:"access-log" default:"true" negatable:"" help:"Log every request."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *Globals) error {
	e, err := g.setup()
	if err != nil {
		return err
	}
	listen := e.cfg.Listen
	if cmd.Listen != "" {
		listen = cmd.Listen
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink := telemetry.Multi{telemetry.NewLogger(e.log), telemetry.NewMetrics(reg)}

	events := dashboard.NewBroadcastHook()
	session := dashboard.NewSession(dashboard.Options{
		Backend:                e.backend,
		StateHook:              events,
		Telemetry:              sink,
		BootstrapOverviewDelay: e.cfg.OverviewDelay(),
	})
	upload := dashboard.NewUploadFlow(dashboard.UploadOptions{
		Client:    e.backend,
		StateHook: events,
		Telemetry: sink,
		SessionID: session.ID(),
	})
	renderer, err := dashboard.NewTemplateRenderer()
	if err != nil {
		return err
	}
	pages := dashboard.NewController(dashboard.ControllerOptions{
		Session:  session,
		Upload:   upload,
		Renderer: renderer,
	})

	app := httpapi.NewApp(httpapi.ServerOptions{
		Session:   session,
		Upload:    upload,
		Pages:     pages,
		Events:    events,
		Telemetry: sink,
		Logger:    e.log,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AccessLog: cmd.AccessLog,
	})

	errCh := make(chan error, 1)
	go func() {
		e.log.Info().Str("listen", listen).Str("backend", e.cfg.BaseURL).Bool("mock", g.Mock).Msg("serving dashboard")
		errCh <- app.Listen(listen)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("logdashctl: listen: %w", err)
	case <-ctx.Done():
	}
	e.log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("logdashctl: shutdown: %w", err)
	}
	return nil
}
