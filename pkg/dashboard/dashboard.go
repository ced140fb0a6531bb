package dashboard

import (
	core "github.com/goliatone/go-logdash/components/dashboard"
)

// Session exposes the underlying components/dashboard.Session type.
type Session = core.Session

// Options re-export for convenience.
type Options = core.Options

// UploadFlow exposes the upload view state machine.
type UploadFlow = core.UploadFlow

// UploadOptions re-export for convenience.
type UploadOptions = core.UploadOptions

// Backend is the client surface a Session and UploadFlow need.
type Backend = core.Backend

// ReportKind names one of the dashboard reports.
type ReportKind = core.ReportKind

// NewSession proxies to the internal constructor.
func NewSession(opts Options) *Session {
	return core.NewSession(opts)
}

// NewUploadFlow proxies to the internal constructor.
func NewUploadFlow(opts UploadOptions) *UploadFlow {
	return core.NewUploadFlow(opts)
}
