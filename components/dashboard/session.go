package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultBootstrapOverviewDelay defers the overview fetch after bootstrap starts.
const DefaultBootstrapOverviewDelay = time.Second

var (
	ErrNoDataset          = errors.New("dashboard: no dataset loaded")
	ErrGateClosed         = errors.New("dashboard: report parameters incomplete")
	ErrSuperseded         = errors.New("dashboard: response superseded by a newer request")
	ErrUnknownReport      = errors.New("dashboard: unknown report")
	ErrInvalidGranularity = errors.New("dashboard: granularity must be an offered divisor of 24")
	ErrTaxonomyNotLoaded  = errors.New("dashboard: taxonomy not loaded")
	ErrUnknownCategory    = errors.New("dashboard: unknown category")
	ErrItemNotInCategory  = errors.New("dashboard: item does not belong to the selected category")
	ErrNotDateGated       = errors.New("dashboard: report takes no date range")

	errMissingBackend = errors.New("dashboard: backend not configured")
)

// Options configures a dashboard Session. Collaborators are interfaces so the
// HTTP client, navigation and transports can be swapped independently.
type Options struct {
	Backend   Backend
	Navigator Navigator
	StateHook StateHook
	Telemetry Telemetry
	// BootstrapOverviewDelay defers the overview fetch after bootstrap begins.
	// Zero starts it immediately.
	BootstrapOverviewDelay time.Duration
	SessionID              string
}

// Session holds the dashboard view state for one activation: reference data,
// user selections and one result slot per report.
type Session struct {
	opts Options

	mu       sync.Mutex
	dataset  DatasetState
	taxonomy Taxonomy
	filename string
	overview OverviewMetrics
	sections map[Section]SectionState
	inputs   Inputs
	reports  map[ReportKind]*reportSlot
}

type reportSlot struct {
	state  ReportState
	cancel context.CancelFunc
}

// NewSession builds a Session with safe defaults.
func NewSession(opts Options) *Session {
	if opts.Navigator == nil {
		opts.Navigator = noopNavigator{}
	}
	if opts.StateHook == nil {
		opts.StateHook = noopStateHook{}
	}
	if opts.BootstrapOverviewDelay < 0 {
		opts.BootstrapOverviewDelay = 0
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	s := &Session{
		opts:    opts,
		reports: make(map[ReportKind]*reportSlot, len(reportKinds)),
	}
	for _, kind := range reportKinds {
		s.reports[kind] = &reportSlot{state: ReportState{Kind: kind, Bucket: EmptyBucket(kind)}}
	}
	s.reset()
	return s
}

// ID identifies the session in telemetry and state events.
func (s *Session) ID() string {
	return s.opts.SessionID
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = DatasetState{}
	s.taxonomy = Taxonomy{}
	s.filename = ""
	s.overview = OverviewMetrics{}
	s.sections = map[Section]SectionState{}
	s.inputs = NewInputs()
	for _, kind := range reportKinds {
		slot := s.reports[kind]
		s.invalidateLocked(kind)
		slot.state.Bucket = EmptyBucket(kind)
		slot.state.Params = ReportParams{}
		slot.state.Failed = false
		slot.state.Err = ""
	}
}

// SelectCategory selects the category at index and clears the item selection.
func (s *Session) SelectCategory(ctx context.Context, index int) error {
	s.mu.Lock()
	if s.taxonomy.Len() == 0 {
		s.mu.Unlock()
		return ErrTaxonomyNotLoaded
	}
	if _, ok := s.taxonomy.Category(index); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: index %d", ErrUnknownCategory, index)
	}
	s.inputs.CategoryIndex = index
	s.inputs.Item = ""
	s.invalidateLocked(affectedBy("category")...)
	s.mu.Unlock()

	s.notify(ctx, StateEvent{Scope: ScopeSelection, Reason: "category"})
	return nil
}

// SelectCategoryByName resolves name against the taxonomy and selects it.
func (s *Session) SelectCategoryByName(ctx context.Context, name string) error {
	s.mu.Lock()
	index, ok := s.taxonomy.IndexOf(name)
	loaded := s.taxonomy.Len() > 0
	s.mu.Unlock()
	if !loaded {
		return ErrTaxonomyNotLoaded
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return s.SelectCategory(ctx, index)
}

// SelectItem selects an item of the currently selected category.
func (s *Session) SelectItem(ctx context.Context, item string) error {
	s.mu.Lock()
	if !s.taxonomy.Contains(s.inputs.CategoryIndex, item) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrItemNotInCategory, item)
	}
	s.inputs.Item = item
	s.invalidateLocked(affectedBy("item")...)
	s.mu.Unlock()

	s.notify(ctx, StateEvent{Scope: ScopeSelection, Reason: "item"})
	return nil
}

// DateBound names one of the two date fields of a date gated report.
type DateBound int

const (
	BoundFrom DateBound = iota
	BoundTo
)

// SetDateBound edits a single date field. Gates are recomputed on every call.
func (s *Session) SetDateBound(ctx context.Context, kind ReportKind, bound DateBound, value string) error {
	if !kind.DateGated() {
		return fmt.Errorf("%w: %s", ErrNotDateGated, kind)
	}
	s.mu.Lock()
	dates := s.datesLocked(kind)
	if bound == BoundFrom {
		dates.From = value
	} else {
		dates.To = value
	}
	s.invalidateLocked(kind)
	s.mu.Unlock()

	s.notify(ctx, StateEvent{Scope: ScopeSelection, Report: kind, Reason: "dates"})
	return nil
}

// SetDateRange edits both date fields of kind at once.
func (s *Session) SetDateRange(ctx context.Context, kind ReportKind, dates DateRange) error {
	if !kind.DateGated() {
		return fmt.Errorf("%w: %s", ErrNotDateGated, kind)
	}
	s.mu.Lock()
	*s.datesLocked(kind) = dates
	s.invalidateLocked(kind)
	s.mu.Unlock()

	s.notify(ctx, StateEvent{Scope: ScopeSelection, Report: kind, Reason: "dates"})
	return nil
}

func (s *Session) datesLocked(kind ReportKind) *DateRange {
	if kind == ReportRepeatPurchases {
		return &s.inputs.RepeatDates
	}
	return &s.inputs.UnpaidDates
}

// SetGranularity selects k daily buckets for the time pattern report; 0 clears it.
func (s *Session) SetGranularity(ctx context.Context, k int) error {
	if k != 0 {
		if _, err := SamplingDivisor(k); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.inputs.Granularity = k
	s.invalidateLocked(affectedBy("granularity")...)
	s.mu.Unlock()

	s.notify(ctx, StateEvent{Scope: ScopeSelection, Reason: "granularity"})
	return nil
}

// Inputs returns the current selections.
func (s *Session) Inputs() Inputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs
}

// Gates evaluates every control against the current selections.
func (s *Session) Gates() Gates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return EvaluateGates(s.taxonomy, s.inputs)
}

// Report returns the state of a single report.
func (s *Session) Report(kind ReportKind) (ReportState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.reports[kind]
	if !ok {
		return ReportState{}, false
	}
	return slot.state, true
}

// Trigger performs one fetch for kind with the current selections. It refuses
// with ErrGateClosed when the report's parameters are incomplete. A newer
// trigger or a parameter edit supersedes an in-flight fetch: the old request
// is cancelled and its response dropped with ErrSuperseded. A failed fetch
// leaves the bucket untouched and marks the report failed.
func (s *Session) Trigger(ctx context.Context, kind ReportKind) error {
	fetch, ok := reportFetchers[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownReport, kind)
	}
	if s.opts.Backend == nil {
		return errMissingBackend
	}

	s.mu.Lock()
	params, err := paramsFor(kind, s.taxonomy, s.inputs)
	if err != nil {
		s.mu.Unlock()
		s.recordTelemetry(ctx, "dashboard.report.gate_closed", map[string]any{"report": string(kind)})
		return err
	}
	slot := s.reports[kind]
	s.invalidateLocked(kind)
	gen := slot.state.Generation
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	slot.cancel = cancel
	slot.state.Pending = true
	s.mu.Unlock()

	s.notify(ctx, StateEvent{Scope: ScopeReport, Report: kind, Reason: "pending"})
	started := time.Now()

	bucket, fetchErr := fetch(fetchCtx, s.opts.Backend, params)

	s.mu.Lock()
	if slot.state.Generation != gen {
		s.mu.Unlock()
		s.recordTelemetry(ctx, "dashboard.report.stale", map[string]any{
			"report":     string(kind),
			"generation": gen,
		})
		return fmt.Errorf("%w: %s", ErrSuperseded, kind)
	}
	slot.cancel = nil
	slot.state.Pending = false
	if fetchErr != nil {
		slot.state.Failed = true
		slot.state.Err = fetchErr.Error()
		s.mu.Unlock()
		s.notify(ctx, StateEvent{Scope: ScopeReport, Report: kind, Reason: "failed"})
		s.recordTelemetry(ctx, "dashboard.report.failed", map[string]any{
			"report": string(kind),
			"error":  fetchErr.Error(),
		})
		return fmt.Errorf("dashboard: fetch %s: %w", kind, fetchErr)
	}
	slot.state.Bucket = bucket
	slot.state.Params = params
	slot.state.Failed = false
	slot.state.Err = ""
	s.mu.Unlock()

	s.notify(ctx, StateEvent{Scope: ScopeReport, Report: kind, Reason: "loaded"})
	s.recordTelemetry(ctx, "dashboard.report.loaded", map[string]any{
		"report":      string(kind),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return nil
}

// invalidateLocked bumps the generation of each report so an in-flight
// response for the previous parameters can no longer land.
func (s *Session) invalidateLocked(kinds ...ReportKind) {
	for _, kind := range kinds {
		slot := s.reports[kind]
		slot.state.Generation++
		slot.state.Pending = false
		if slot.cancel != nil {
			slot.cancel()
			slot.cancel = nil
		}
	}
}

// ViewState is a consistent snapshot of everything the dashboard renders.
type ViewState struct {
	SessionID        string                     `json:"session_id" yaml:"session_id"`
	Dataset          DatasetState               `json:"dataset" yaml:"dataset"`
	Filename         string                     `json:"filename" yaml:"filename"`
	Overview         OverviewMetrics            `json:"overview" yaml:"overview"`
	Taxonomy         Taxonomy                   `json:"taxonomy" yaml:"taxonomy"`
	Sections         map[Section]SectionState   `json:"sections" yaml:"sections"`
	Inputs           Inputs                     `json:"inputs" yaml:"inputs"`
	SelectedCategory string                     `json:"selected_category" yaml:"selected_category"`
	Items            []string                   `json:"items" yaml:"items"`
	Gates            Gates                      `json:"gates" yaml:"gates"`
	Reports          map[ReportKind]ReportState `json:"reports" yaml:"reports"`
}

// Snapshot copies the current view state.
func (s *Session) Snapshot() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := ViewState{
		SessionID: s.opts.SessionID,
		Dataset:   s.dataset,
		Filename:  s.filename,
		Overview:  s.overview,
		Taxonomy:  s.taxonomy,
		Sections:  make(map[Section]SectionState, len(s.sections)),
		Inputs:    s.inputs,
		Items:     []string{},
		Gates:     EvaluateGates(s.taxonomy, s.inputs),
		Reports:   make(map[ReportKind]ReportState, len(s.reports)),
	}
	for section, state := range s.sections {
		view.Sections[section] = state
	}
	if cat, ok := s.taxonomy.Category(s.inputs.CategoryIndex); ok {
		view.SelectedCategory = cat.Name
		view.Items = append(view.Items, cat.Items...)
	}
	for kind, slot := range s.reports {
		view.Reports[kind] = slot.state
	}
	return view
}

func (s *Session) notify(ctx context.Context, event StateEvent) {
	event.SessionID = s.opts.SessionID
	if err := s.opts.StateHook.StateChanged(ctx, event); err != nil {
		s.recordTelemetry(ctx, "dashboard.state_hook.error", map[string]any{
			"scope": event.Scope,
			"error": err.Error(),
		})
	}
}

func (s *Session) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["session_id"] = s.opts.SessionID
	s.opts.Telemetry.Record(ctx, event, payload)
}

type noopNavigator struct{}

func (noopNavigator) Navigate(context.Context, View) error { return nil }

type noopStateHook struct{}

func (noopStateHook) StateChanged(context.Context, StateEvent) error { return nil }
