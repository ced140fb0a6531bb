package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goliatone/go-logdash/components/dashboard"
	"github.com/goliatone/go-logdash/pkg/telemetry"
)

type uploadCmd struct {
	File string `arg:"" type:"existingfile" help:"Log file to upload."`
}

func (cmd *uploadCmd) Run(ctx context.Context, g *Globals) error {
	e, err := g.setup()
	if err != nil {
		return err
	}
	f, err := os.Open(cmd.File) //nolint:gosec
	if err != nil {
		return fmt.Errorf("logdashctl: open %s: %w", cmd.File, err)
	}
	defer f.Close()

	flow := dashboard.NewUploadFlow(dashboard.UploadOptions{
		Client:    e.backend,
		Telemetry: telemetry.NewLogger(e.log),
	})
	submitErr := flow.Submit(ctx, dashboard.UploadFile{Name: filepath.Base(cmd.File), Content: f})
	if err := printYAML(g.out(), flow.State()); err != nil {
		return err
	}
	return submitErr
}

type overviewCmd struct{}

type overviewOutput struct {
	Filename   string                                       `yaml:"filename"`
	Overview   dashboard.OverviewMetrics                    `yaml:"overview"`
	Categories []dashboard.Category                         `yaml:"categories"`
	Sections   map[dashboard.Section]dashboard.SectionState `yaml:"sections"`
}

func (cmd *overviewCmd) Run(ctx context.Context, g *Globals) error {
	e, err := g.setup()
	if err != nil {
		return err
	}
	session := newCLISession(e)
	if err := session.Bootstrap(ctx); err != nil {
		return err
	}
	view := session.Snapshot()
	return printYAML(g.out(), overviewOutput{
		Filename:   view.Filename,
		Overview:   view.Overview,
		Categories: view.Taxonomy.Categories,
		Sections:   view.Sections,
	})
}

type reportCmd struct {
	Kind     string `arg:"" help:"Report: server-load, actions-per-country, unpaid-carts, repeat-purchases, time-pattern, pattern-view, pattern-buy."`
	Category string `help:"Category name for time-pattern, pattern-view and pattern-buy."`
	Item     string `help:"Item of the category for pattern-view and pattern-buy."`
	From     string `help:"First date for unpaid-carts and repeat-purchases."`
	To       string `help:"Second date for unpaid-carts and repeat-purchases."`
	K        int    `name:"k" help:"Daily buckets for time-pattern (1, 2, 3, 4, 6, 8, 12 or 24)."`
}

func (cmd *reportCmd) Run(ctx context.Context, g *Globals) error {
	kind, err := dashboard.ParseReportKind(cmd.Kind)
	if err != nil {
		return err
	}
	e, err := g.setup()
	if err != nil {
		return err
	}
	session := newCLISession(e)
	if err := session.Bootstrap(ctx); err != nil {
		return err
	}
	if err := cmd.apply(ctx, session, kind); err != nil {
		return err
	}
	if err := session.Trigger(ctx, kind); err != nil {
		if errors.Is(err, dashboard.ErrGateClosed) {
			return fmt.Errorf("%w (see logdashctl report --help for the required flags)", err)
		}
		return err
	}
	state, _ := session.Report(kind)
	return printYAML(g.out(), state)
}

func (cmd *reportCmd) apply(ctx context.Context, session *dashboard.Session, kind dashboard.ReportKind) error {
	if cmd.Category != "" {
		if err := session.SelectCategoryByName(ctx, cmd.Category); err != nil {
			return err
		}
	}
	if cmd.Item != "" {
		if err := session.SelectItem(ctx, cmd.Item); err != nil {
			return err
		}
	}
	if cmd.From != "" || cmd.To != "" {
		if err := session.SetDateRange(ctx, kind, dashboard.DateRange{From: cmd.From, To: cmd.To}); err != nil {
			return err
		}
	}
	if cmd.K != 0 {
		if err := session.SetGranularity(ctx, cmd.K); err != nil {
			return err
		}
	}
	return nil
}

// newCLISession skips the overview delay; nothing is rendered while it loads.
func newCLISession(e env) *dashboard.Session {
	return dashboard.NewSession(dashboard.Options{
		Backend:   e.backend,
		Telemetry: telemetry.NewLogger(e.log),
	})
}
