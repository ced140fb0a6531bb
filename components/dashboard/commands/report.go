package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

// TriggerReportInput names the report to fetch.
type TriggerReportInput struct {
	Report dashboard.ReportKind
}

type reportTrigger interface {
	Trigger(ctx context.Context, kind dashboard.ReportKind) error
}

// TriggerReportCommand fetches one report with the current selections.
type TriggerReportCommand struct {
	session   reportTrigger
	telemetry Telemetry
}

// NewTriggerReportCommand creates the command.
func NewTriggerReportCommand(session reportTrigger, telemetry Telemetry) *TriggerReportCommand {
	return &TriggerReportCommand{session: session, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[TriggerReportInput] = (*TriggerReportCommand)(nil)

// Execute triggers the fetch. Gate and staleness errors are returned as is.
func (c *TriggerReportCommand) Execute(ctx context.Context, msg TriggerReportInput) error {
	if c.session == nil {
		return errors.New("trigger report command requires session")
	}
	err := c.session.Trigger(ctx, msg.Report)
	c.telemetry.Record(ctx, "dashboard.command.trigger", map[string]any{
		"report": string(msg.Report),
		"ok":     err == nil,
	})
	return err
}
