package queries

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

var errMissingSession = errors.New("queries: session is required")

// ReportInput names a single report.
type ReportInput struct {
	Report dashboard.ReportKind
}

type reportReader interface {
	Report(kind dashboard.ReportKind) (dashboard.ReportState, bool)
}

// ReportQuery reads the state of one report without fetching.
type ReportQuery struct {
	session reportReader
}

// NewReportQuery builds the query.
func NewReportQuery(session reportReader) *ReportQuery {
	return &ReportQuery{session: session}
}

var _ gocommand.Querier[ReportInput, dashboard.ReportState] = (*ReportQuery)(nil)

// Query returns the report state or ErrUnknownReport.
func (q *ReportQuery) Query(_ context.Context, input ReportInput) (dashboard.ReportState, error) {
	if q.session == nil {
		return dashboard.ReportState{}, errMissingSession
	}
	state, ok := q.session.Report(input.Report)
	if !ok {
		return dashboard.ReportState{}, fmt.Errorf("%w: %q", dashboard.ErrUnknownReport, input.Report)
	}
	return state, nil
}

// UploadStateInput requests the upload view state.
type UploadStateInput struct{}

type uploadReader interface {
	State() dashboard.UploadState
}

// UploadStateQuery reads the upload view state.
type UploadStateQuery struct {
	flow uploadReader
}

// NewUploadStateQuery builds the query.
func NewUploadStateQuery(flow uploadReader) *UploadStateQuery {
	return &UploadStateQuery{flow: flow}
}

var _ gocommand.Querier[UploadStateInput, dashboard.UploadState] = (*UploadStateQuery)(nil)

// Query returns the upload state.
func (q *UploadStateQuery) Query(context.Context, UploadStateInput) (dashboard.UploadState, error) {
	if q.flow == nil {
		return dashboard.UploadState{}, errors.New("queries: upload flow is required")
	}
	return q.flow.State(), nil
}
