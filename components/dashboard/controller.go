package dashboard

import (
	"context"
	"errors"
	"io"
)

const (
	DashboardTemplate = "dashboard.html"
	UploadTemplate    = "upload.html"
)

// ControllerOptions wires the collaborators a Controller renders from.
type ControllerOptions struct {
	Session  *Session
	Upload   *UploadFlow
	Renderer Renderer
	Charts   *ChartRenderer
}

// Controller renders the two views into HTML.
type Controller struct {
	session  *Session
	upload   *UploadFlow
	renderer Renderer
	charts   *ChartRenderer
}

// NewController wires the session and upload flow into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Charts == nil {
		opts.Charts = NewChartRenderer()
	}
	return &Controller{
		session:  opts.Session,
		upload:   opts.Upload,
		renderer: opts.Renderer,
		charts:   opts.Charts,
	}
}

// ReportView is one report as handed to the dashboard template.
type ReportView struct {
	ReportState
	Slug      string  `json:"slug"`
	Title     string  `json:"title"`
	Enabled   bool    `json:"enabled"`
	ChartHTML string  `json:"chart_html,omitempty"`
	CartIDs   []int64 `json:"cart_ids,omitempty"`
}

// DashboardPayload builds the template data for the dashboard view.
func (c *Controller) DashboardPayload() map[string]any {
	view := c.session.Snapshot()
	reports := make([]ReportView, 0, len(reportKinds))
	for _, kind := range reportKinds {
		state := view.Reports[kind]
		rv := ReportView{
			ReportState: state,
			Slug:        kind.Slug(),
			Title:       kind.Title(),
			Enabled:     view.Gates.Enabled(kind),
		}
		if carts, ok := state.Bucket.(UnpaidCartsBucket); ok {
			for _, cart := range carts.List {
				rv.CartIDs = append(rv.CartIDs, cart.CartID)
			}
		}
		if html, err := c.charts.Render(state); err == nil {
			rv.ChartHTML = html
		}
		reports = append(reports, rv)
	}
	return map[string]any{
		"view":                view,
		"reports":             reports,
		"category_names":      view.Taxonomy.Names(),
		"granularity_options": GranularityOptions(),
	}
}

// RenderDashboard writes the dashboard view.
func (c *Controller) RenderDashboard(_ context.Context, out io.Writer) error {
	if c.renderer == nil {
		return errMissingRenderer
	}
	if c.session == nil {
		return errMissingBackend
	}
	_, err := c.renderer.Render(DashboardTemplate, c.DashboardPayload(), out)
	return err
}

// RenderUpload writes the upload view.
func (c *Controller) RenderUpload(_ context.Context, out io.Writer) error {
	if c.renderer == nil {
		return errMissingRenderer
	}
	state := UploadState{Status: UploadIdle, SubmitEnabled: true}
	if c.upload != nil {
		state = c.upload.State()
	}
	_, err := c.renderer.Render(UploadTemplate, map[string]any{"upload": state}, out)
	return err
}

var errMissingRenderer = errors.New("dashboard: renderer not configured")
