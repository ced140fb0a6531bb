package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
)

// BootstrapInput activates the dashboard view.
type BootstrapInput struct{}

type bootstrapper interface {
	Bootstrap(ctx context.Context) error
}

// BootstrapCommand runs the dashboard bootstrap sequence.
type BootstrapCommand struct {
	session   bootstrapper
	telemetry Telemetry
}

// NewBootstrapCommand creates the command.
func NewBootstrapCommand(session bootstrapper, telemetry Telemetry) *BootstrapCommand {
	return &BootstrapCommand{session: session, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[BootstrapInput] = (*BootstrapCommand)(nil)

// Execute delegates to the session. ErrNoDataset is passed through so
// transports can route to the upload view.
func (c *BootstrapCommand) Execute(ctx context.Context, _ BootstrapInput) error {
	if c.session == nil {
		return errors.New("bootstrap command requires session")
	}
	err := c.session.Bootstrap(ctx)
	c.telemetry.Record(ctx, "dashboard.command.bootstrap", map[string]any{"ok": err == nil})
	return err
}
