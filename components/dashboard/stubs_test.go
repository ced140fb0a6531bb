package dashboard

import (
	"context"
	"errors"
	"sync"
)

var errStubTransport = errors.New("stub: transport failure")

type stubBackend struct {
	mu sync.Mutex

	present     bool
	presentErr  error
	taxonomy    Taxonomy
	taxonomyErr error
	filename    string
	filenameErr error
	overview    OverviewMetrics
	overviewErr error

	serverLoad  ServerLoadReport
	actions     CountSeries
	carts       []CartRecord
	repeated    RepeatedPaymentsReport
	timePattern CountSeries
	patternBuy  CountSeries
	reportErr   error

	// patternView overrides the pattern view fetch when set; tests use it to
	// hold responses back.
	patternView func(ctx context.Context, query ItemQuery) (CountSeries, error)

	uploadResult UploadResult
	uploadErr    error
	uploadGate   chan struct{}

	calls         []string
	lastDates     DateRange
	lastTimeQuery TimePatternQuery
	lastItemQuery ItemQuery
}

func fishTaxonomy() Taxonomy {
	return NewTaxonomy(
		Category{Name: "fresh_fish", Items: []string{"salmon", "tuna"}},
		Category{Name: "frozen_fish", Items: []string{"pollock"}},
	)
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		present:      true,
		taxonomy:     fishTaxonomy(),
		filename:     "logs.txt",
		overview:     OverviewMetrics{Countries: 3, ItemsViews: 40, PaidCarts: 7, UniqueUsers: 11},
		uploadResult: UploadResult{Status: UploadStatusOK},
	}
}

func (s *stubBackend) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *stubBackend) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubBackend) called(call string) bool {
	for _, c := range s.Calls() {
		if c == call {
			return true
		}
	}
	return false
}

func (s *stubBackend) CheckDataset(context.Context) (bool, error) {
	s.record("check_db")
	return s.present, s.presentErr
}

func (s *stubBackend) UploadedFilename(context.Context) (string, error) {
	s.record("get_file_name")
	return s.filename, s.filenameErr
}

func (s *stubBackend) Categories(context.Context) (Taxonomy, error) {
	s.record("get_categories")
	return s.taxonomy, s.taxonomyErr
}

func (s *stubBackend) OverallStatistics(context.Context) (OverviewMetrics, error) {
	s.record("overall_statistics")
	return s.overview, s.overviewErr
}

func (s *stubBackend) ServerLoadPerHour(context.Context) (ServerLoadReport, error) {
	s.record("server_load_per_hour")
	return s.serverLoad, s.reportErr
}

func (s *stubBackend) ActionsPerCountry(context.Context) (CountSeries, error) {
	s.record("actions_per_country")
	return s.actions, s.reportErr
}

func (s *stubBackend) UnpaidCarts(_ context.Context, dates DateRange) ([]CartRecord, error) {
	s.record("unpaid_carts")
	s.mu.Lock()
	s.lastDates = dates
	s.mu.Unlock()
	return s.carts, s.reportErr
}

func (s *stubBackend) RepeatedPayments(_ context.Context, dates DateRange) (RepeatedPaymentsReport, error) {
	s.record("rep_repeated_payments")
	s.mu.Lock()
	s.lastDates = dates
	s.mu.Unlock()
	return s.repeated, s.reportErr
}

func (s *stubBackend) TimePattern(_ context.Context, query TimePatternQuery) (CountSeries, error) {
	s.record("time_pattern")
	s.mu.Lock()
	s.lastTimeQuery = query
	s.mu.Unlock()
	return s.timePattern, s.reportErr
}

func (s *stubBackend) PatternView(ctx context.Context, query ItemQuery) (CountSeries, error) {
	s.record("pattern_view")
	s.mu.Lock()
	s.lastItemQuery = query
	override := s.patternView
	s.mu.Unlock()
	if override != nil {
		return override(ctx, query)
	}
	return CountSeries{{Key: "Poland", Count: 1}}, s.reportErr
}

func (s *stubBackend) PatternBuy(_ context.Context, query ItemQuery) (CountSeries, error) {
	s.record("pattern_buy")
	s.mu.Lock()
	s.lastItemQuery = query
	s.mu.Unlock()
	return s.patternBuy, s.reportErr
}

func (s *stubBackend) Upload(ctx context.Context, file UploadFile) (UploadResult, error) {
	s.record("upload")
	if s.uploadGate != nil {
		select {
		case <-s.uploadGate:
		case <-ctx.Done():
			return UploadResult{}, ctx.Err()
		}
	}
	return s.uploadResult, s.uploadErr
}

type recordingNavigator struct {
	mu    sync.Mutex
	views []View
}

func (n *recordingNavigator) Navigate(_ context.Context, view View) error {
	n.mu.Lock()
	n.views = append(n.views, view)
	n.mu.Unlock()
	return nil
}

func (n *recordingNavigator) Views() []View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]View(nil), n.views...)
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingTelemetry) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

// readySession returns a bootstrapped session over a stub backend.
func readySession(backend *stubBackend) *Session {
	s := NewSession(Options{Backend: backend})
	if err := s.Bootstrap(context.Background()); err != nil {
		panic(err)
	}
	return s
}
