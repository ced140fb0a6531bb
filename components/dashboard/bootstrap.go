package dashboard

import (
	"context"
	"sync"
	"time"
)

// Section is one independently loaded part of the dashboard header.
type Section string

const (
	SectionTaxonomy Section = "taxonomy"
	SectionFilename Section = "filename"
	SectionOverview Section = "overview"
)

// SectionState tracks a bootstrap section. A failed section stays empty and
// does not affect the others.
type SectionState struct {
	Loaded bool   `json:"loaded" yaml:"loaded"`
	Failed bool   `json:"failed" yaml:"failed"`
	Err    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// DatasetState is the outcome of the dataset presence check.
type DatasetState struct {
	Checked bool `json:"checked" yaml:"checked"`
	Present bool `json:"present" yaml:"present"`
}

// Bootstrap activates the dashboard: it resets all state, checks that a
// dataset is loaded and then fetches the taxonomy, the source filename and,
// after BootstrapOverviewDelay, the overview metrics. The three loads run
// concurrently and fail independently. When no dataset is present the
// session navigates to the upload view, skips the loads and returns
// ErrNoDataset.
func (s *Session) Bootstrap(ctx context.Context) error {
	if s.opts.Backend == nil {
		return errMissingBackend
	}
	s.reset()
	s.recordTelemetry(ctx, "dashboard.bootstrap.start", nil)

	if !s.CheckDatasetPresence(ctx) {
		s.navigate(ctx, ViewUpload)
		return ErrNoDataset
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_ = s.LoadTaxonomy(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = s.LoadSourceFilename(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := waitDelay(ctx, s.opts.BootstrapOverviewDelay); err != nil {
			s.finishSection(ctx, SectionOverview, err)
			return
		}
		_ = s.LoadOverviewMetrics(ctx)
	}()
	wg.Wait()

	s.recordTelemetry(ctx, "dashboard.bootstrap.done", nil)
	return nil
}

// CheckDatasetPresence asks the backend whether a dataset is loaded. A
// transport failure counts as no dataset.
func (s *Session) CheckDatasetPresence(ctx context.Context) bool {
	present, err := s.opts.Backend.CheckDataset(ctx)
	if err != nil {
		present = false
		s.recordTelemetry(ctx, "dashboard.dataset.error", map[string]any{"error": err.Error()})
	}
	s.mu.Lock()
	s.dataset = DatasetState{Checked: true, Present: present}
	s.mu.Unlock()
	s.notify(ctx, StateEvent{Scope: ScopeSection, Section: "dataset", Reason: presentReason(present)})
	return present
}

// LoadTaxonomy replaces the taxonomy and clears category and item selections.
func (s *Session) LoadTaxonomy(ctx context.Context) error {
	tax, err := s.opts.Backend.Categories(ctx)
	if err == nil {
		s.mu.Lock()
		s.taxonomy = NewTaxonomy(tax.Categories...)
		s.inputs.CategoryIndex = -1
		s.inputs.Item = ""
		s.invalidateLocked(affectedBy("category")...)
		s.mu.Unlock()
	}
	s.finishSection(ctx, SectionTaxonomy, err)
	return err
}

// LoadSourceFilename fetches the name of the uploaded log file.
func (s *Session) LoadSourceFilename(ctx context.Context) error {
	name, err := s.opts.Backend.UploadedFilename(ctx)
	if err == nil {
		s.mu.Lock()
		s.filename = name
		s.mu.Unlock()
	}
	s.finishSection(ctx, SectionFilename, err)
	return err
}

// LoadOverviewMetrics fetches the four headline counters.
func (s *Session) LoadOverviewMetrics(ctx context.Context) error {
	metrics, err := s.opts.Backend.OverallStatistics(ctx)
	if err == nil {
		s.mu.Lock()
		s.overview = metrics
		s.mu.Unlock()
	}
	s.finishSection(ctx, SectionOverview, err)
	return err
}

func (s *Session) finishSection(ctx context.Context, section Section, err error) {
	state := SectionState{Loaded: err == nil}
	reason := "loaded"
	if err != nil {
		state.Failed = true
		state.Err = err.Error()
		reason = "failed"
		s.recordTelemetry(ctx, "dashboard.section.failed", map[string]any{
			"section": string(section),
			"error":   err.Error(),
		})
	}
	s.mu.Lock()
	s.sections[section] = state
	s.mu.Unlock()
	s.notify(ctx, StateEvent{Scope: ScopeSection, Section: section, Reason: reason})
}

func (s *Session) navigate(ctx context.Context, view View) {
	if err := s.opts.Navigator.Navigate(ctx, view); err != nil {
		s.recordTelemetry(ctx, "dashboard.navigate.error", map[string]any{
			"view":  string(view),
			"error": err.Error(),
		})
	}
	s.notify(ctx, StateEvent{Scope: ScopeNavigate, Reason: string(view)})
}

func waitDelay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func presentReason(present bool) string {
	if present {
		return "present"
	}
	return "absent"
}
