package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

// ViewStateInput requests the dashboard snapshot.
type ViewStateInput struct{}

type snapshotter interface {
	Snapshot() dashboard.ViewState
}

// ViewStateQuery returns a consistent copy of the dashboard state.
type ViewStateQuery struct {
	session snapshotter
}

// NewViewStateQuery builds the query.
func NewViewStateQuery(session snapshotter) *ViewStateQuery {
	return &ViewStateQuery{session: session}
}

var _ gocommand.Querier[ViewStateInput, dashboard.ViewState] = (*ViewStateQuery)(nil)

// Query returns the snapshot.
func (q *ViewStateQuery) Query(context.Context, ViewStateInput) (dashboard.ViewState, error) {
	if q.session == nil {
		return dashboard.ViewState{}, errMissingSession
	}
	return q.session.Snapshot(), nil
}

// GatesInput requests control enablement.
type GatesInput struct{}

type gateEvaluator interface {
	Gates() dashboard.Gates
}

// GatesQuery evaluates every gate against the current selections.
type GatesQuery struct {
	session gateEvaluator
}

// NewGatesQuery builds the query.
func NewGatesQuery(session gateEvaluator) *GatesQuery {
	return &GatesQuery{session: session}
}

var _ gocommand.Querier[GatesInput, dashboard.Gates] = (*GatesQuery)(nil)

// Query evaluates the gates.
func (q *GatesQuery) Query(context.Context, GatesInput) (dashboard.Gates, error) {
	if q.session == nil {
		return dashboard.Gates{}, errMissingSession
	}
	return q.session.Gates(), nil
}
