package analytics

import (
	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

// Client is the full backend surface the dashboard session and upload flow call.
type Client interface {
	dashboard.Backend
}

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)
)
