package queries

import (
	"context"
	"errors"
	"testing"

	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

type stubSession struct {
	calls int
}

func (s *stubSession) Snapshot() dashboard.ViewState {
	s.calls++
	return dashboard.ViewState{SessionID: "s-1"}
}

func (s *stubSession) Gates() dashboard.Gates {
	s.calls++
	return dashboard.Gates{Reports: map[dashboard.ReportKind]bool{dashboard.ReportServerLoad: true}}
}

func (s *stubSession) Report(kind dashboard.ReportKind) (dashboard.ReportState, bool) {
	s.calls++
	if kind != dashboard.ReportServerLoad {
		return dashboard.ReportState{}, false
	}
	return dashboard.ReportState{Kind: kind}, true
}

func TestViewStateQuery(t *testing.T) {
	session := &stubSession{}
	view, err := NewViewStateQuery(session).Query(context.Background(), ViewStateInput{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if view.SessionID != "s-1" || session.calls != 1 {
		t.Fatalf("unexpected snapshot %#v", view)
	}
}

func TestGatesQuery(t *testing.T) {
	gates, err := NewGatesQuery(&stubSession{}).Query(context.Background(), GatesInput{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if !gates.Enabled(dashboard.ReportServerLoad) {
		t.Fatalf("expected server load enabled")
	}
}

func TestReportQuery(t *testing.T) {
	query := NewReportQuery(&stubSession{})
	state, err := query.Query(context.Background(), ReportInput{Report: dashboard.ReportServerLoad})
	if err != nil || state.Kind != dashboard.ReportServerLoad {
		t.Fatalf("unexpected result %#v, %v", state, err)
	}
	if _, err := query.Query(context.Background(), ReportInput{Report: "sales"}); !errors.Is(err, dashboard.ErrUnknownReport) {
		t.Fatalf("expected ErrUnknownReport, got %v", err)
	}
}

func TestUploadStateQuery(t *testing.T) {
	flow := dashboard.NewUploadFlow(dashboard.UploadOptions{})
	state, err := NewUploadStateQuery(flow).Query(context.Background(), UploadStateInput{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if state.Status != dashboard.UploadIdle {
		t.Fatalf("expected idle state, got %s", state.Status)
	}
}

func TestQueriesRequireSession(t *testing.T) {
	if _, err := NewViewStateQuery(nil).Query(context.Background(), ViewStateInput{}); err == nil {
		t.Fatalf("expected error without session")
	}
}
