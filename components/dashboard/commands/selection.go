package commands

import (
	"context"
	"errors"
	"strings"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

// SelectCategoryInput picks a category by index or, when Name is set, by name.
type SelectCategoryInput struct {
	Index int
	Name  string
}

type categorySelector interface {
	SelectCategory(ctx context.Context, index int) error
	SelectCategoryByName(ctx context.Context, name string) error
}

// SelectCategoryCommand changes the category selection and clears the item.
type SelectCategoryCommand struct {
	session   categorySelector
	telemetry Telemetry
}

// NewSelectCategoryCommand creates the command.
func NewSelectCategoryCommand(session categorySelector, telemetry Telemetry) *SelectCategoryCommand {
	return &SelectCategoryCommand{session: session, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SelectCategoryInput] = (*SelectCategoryCommand)(nil)

// Execute applies the selection.
func (c *SelectCategoryCommand) Execute(ctx context.Context, msg SelectCategoryInput) error {
	if c.session == nil {
		return errors.New("select category command requires session")
	}
	var err error
	if name := strings.TrimSpace(msg.Name); name != "" {
		err = c.session.SelectCategoryByName(ctx, name)
	} else {
		err = c.session.SelectCategory(ctx, msg.Index)
	}
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.select_category", map[string]any{
		"index": msg.Index,
		"name":  msg.Name,
	})
	return nil
}

// SelectItemInput picks an item of the selected category.
type SelectItemInput struct {
	Item string
}

type itemSelector interface {
	SelectItem(ctx context.Context, item string) error
}

// SelectItemCommand changes the item selection.
type SelectItemCommand struct {
	session   itemSelector
	telemetry Telemetry
}

// NewSelectItemCommand creates the command.
func NewSelectItemCommand(session itemSelector, telemetry Telemetry) *SelectItemCommand {
	return &SelectItemCommand{session: session, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SelectItemInput] = (*SelectItemCommand)(nil)

// Execute applies the selection.
func (c *SelectItemCommand) Execute(ctx context.Context, msg SelectItemInput) error {
	if c.session == nil {
		return errors.New("select item command requires session")
	}
	if err := c.session.SelectItem(ctx, msg.Item); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.select_item", map[string]any{"item": msg.Item})
	return nil
}

// SetDateRangeInput edits the date range bound to a date gated report.
type SetDateRangeInput struct {
	Report dashboard.ReportKind
	Dates  dashboard.DateRange
}

type dateSetter interface {
	SetDateRange(ctx context.Context, kind dashboard.ReportKind, dates dashboard.DateRange) error
}

// SetDateRangeCommand stores both bounds of a report's range.
type SetDateRangeCommand struct {
	session   dateSetter
	telemetry Telemetry
}

// NewSetDateRangeCommand creates the command.
func NewSetDateRangeCommand(session dateSetter, telemetry Telemetry) *SetDateRangeCommand {
	return &SetDateRangeCommand{session: session, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetDateRangeInput] = (*SetDateRangeCommand)(nil)

// Execute stores the range.
func (c *SetDateRangeCommand) Execute(ctx context.Context, msg SetDateRangeInput) error {
	if c.session == nil {
		return errors.New("set date range command requires session")
	}
	if err := c.session.SetDateRange(ctx, msg.Report, msg.Dates); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.set_dates", map[string]any{
		"report": string(msg.Report),
		"from":   msg.Dates.From,
		"to":     msg.Dates.To,
	})
	return nil
}

// SetGranularityInput selects k daily buckets; 0 clears the selection.
type SetGranularityInput struct {
	K int
}

type granularitySetter interface {
	SetGranularity(ctx context.Context, k int) error
}

// SetGranularityCommand changes the time pattern granularity.
type SetGranularityCommand struct {
	session   granularitySetter
	telemetry Telemetry
}

// NewSetGranularityCommand creates the command.
func NewSetGranularityCommand(session granularitySetter, telemetry Telemetry) *SetGranularityCommand {
	return &SetGranularityCommand{session: session, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetGranularityInput] = (*SetGranularityCommand)(nil)

// Execute applies the granularity.
func (c *SetGranularityCommand) Execute(ctx context.Context, msg SetGranularityInput) error {
	if c.session == nil {
		return errors.New("set granularity command requires session")
	}
	if err := c.session.SetGranularity(ctx, msg.K); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.set_granularity", map[string]any{"k": msg.K})
	return nil
}
