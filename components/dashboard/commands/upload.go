package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

type uploader interface {
	Submit(ctx context.Context, file dashboard.UploadFile) error
}

// UploadLogsCommand submits a log file through the upload flow.
type UploadLogsCommand struct {
	flow      uploader
	telemetry Telemetry
}

// NewUploadLogsCommand creates the command.
func NewUploadLogsCommand(flow uploader, telemetry Telemetry) *UploadLogsCommand {
	return &UploadLogsCommand{flow: flow, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[dashboard.UploadFile] = (*UploadLogsCommand)(nil)

// Execute submits the file. A rejected or missing file yields
// dashboard.ErrWrongFormat.
func (c *UploadLogsCommand) Execute(ctx context.Context, msg dashboard.UploadFile) error {
	if c.flow == nil {
		return errors.New("upload command requires flow")
	}
	err := c.flow.Submit(ctx, msg)
	c.telemetry.Record(ctx, "dashboard.command.upload", map[string]any{
		"filename": msg.Name,
		"ok":       err == nil,
	})
	return err
}
