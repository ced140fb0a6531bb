package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUploadInProgress = errors.New("dashboard: upload already in progress")
	ErrWrongFormat      = errors.New("dashboard: uploaded file has the wrong format")
	ErrNoFileSelected   = errors.New("no file selected")
)

// WrongFormatWarning is shown when the backend rejects an upload.
const WrongFormatWarning = "Wrong file format. Please upload a log file produced by the shop server."

// UploadStatus is the phase of the upload view.
type UploadStatus string

const (
	UploadIdle           UploadStatus = "idle"
	UploadSubmitting     UploadStatus = "submitting"
	UploadSucceeded      UploadStatus = "succeeded"
	UploadRejectedFormat UploadStatus = "rejected_format"
)

// UploadState is what the upload view renders.
type UploadState struct {
	Status          UploadStatus `json:"status" yaml:"status"`
	SubmitEnabled   bool         `json:"submit_enabled" yaml:"submit_enabled"`
	ProgressVisible bool         `json:"progress_visible" yaml:"progress_visible"`
	WarningVisible  bool         `json:"warning_visible" yaml:"warning_visible"`
	Warning         string       `json:"warning,omitempty" yaml:"warning,omitempty"`
	Filename        string       `json:"filename,omitempty" yaml:"filename,omitempty"`
	// Err is the failure behind a rejection: the backend verdict or a transport error.
	Err             string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// UploadOptions configures an UploadFlow.
type UploadOptions struct {
	Client    UploadClient
	Navigator Navigator
	StateHook StateHook
	Telemetry Telemetry
	SessionID string
}

// UploadFlow drives the upload view: submit once, show progress, then either
// navigate to the dashboard or show the format warning and allow a retry.
type UploadFlow struct {
	opts UploadOptions

	mu    sync.Mutex
	state UploadState
}

// NewUploadFlow builds an idle flow.
func NewUploadFlow(opts UploadOptions) *UploadFlow {
	if opts.Navigator == nil {
		opts.Navigator = noopNavigator{}
	}
	if opts.StateHook == nil {
		opts.StateHook = noopStateHook{}
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &UploadFlow{opts: opts, state: idleUploadState()}
}

func idleUploadState() UploadState {
	return UploadState{Status: UploadIdle, SubmitEnabled: true}
}

// State returns the current view state.
func (f *UploadFlow) State() UploadState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reset returns the flow to idle unless a submission is in flight.
func (f *UploadFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Status == UploadSubmitting {
		return
	}
	f.state = idleUploadState()
}

// Submit sends file to the backend. The submit control is disabled until the
// backend answers. "ok" navigates to the dashboard; any other answer,
// transport failures and a missing file included, shows the format warning
// and returns ErrWrongFormat.
func (f *UploadFlow) Submit(ctx context.Context, file UploadFile) error {
	f.mu.Lock()
	if f.state.Status == UploadSubmitting {
		f.mu.Unlock()
		return ErrUploadInProgress
	}
	f.state = UploadState{Status: UploadSubmitting, ProgressVisible: true, Filename: file.Name}
	f.mu.Unlock()
	f.notify(ctx, "submitting")
	f.record(ctx, "dashboard.upload.submit", map[string]any{"filename": file.Name})

	if file.Content == nil {
		return f.reject(ctx, file.Name, ErrNoFileSelected)
	}
	if f.opts.Client == nil {
		return f.reject(ctx, file.Name, errMissingBackend)
	}
	result, err := f.opts.Client.Upload(ctx, file)
	if err != nil {
		return f.reject(ctx, file.Name, err)
	}
	if result.Status != UploadStatusOK {
		return f.reject(ctx, file.Name, fmt.Errorf("status %q", result.Status))
	}

	f.mu.Lock()
	f.state = UploadState{Status: UploadSucceeded, Filename: file.Name}
	f.mu.Unlock()
	f.notify(ctx, "succeeded")
	f.record(ctx, "dashboard.upload.accepted", map[string]any{"filename": file.Name})

	if err := f.opts.Navigator.Navigate(ctx, ViewDashboard); err != nil {
		f.record(ctx, "dashboard.navigate.error", map[string]any{
			"view":  string(ViewDashboard),
			"error": err.Error(),
		})
	}
	return nil
}

func (f *UploadFlow) reject(ctx context.Context, name string, cause error) error {
	f.mu.Lock()
	f.state = UploadState{
		Status:         UploadRejectedFormat,
		SubmitEnabled:  true,
		WarningVisible: true,
		Warning:        WrongFormatWarning,
		Filename:       name,
		Err:            cause.Error(),
	}
	f.mu.Unlock()
	f.notify(ctx, "rejected")
	f.record(ctx, "dashboard.upload.rejected", map[string]any{
		"filename": name,
		"error":    cause.Error(),
	})
	return fmt.Errorf("%w: %v", ErrWrongFormat, cause)
}

func (f *UploadFlow) notify(ctx context.Context, reason string) {
	event := StateEvent{SessionID: f.opts.SessionID, Scope: ScopeUpload, Reason: reason}
	if err := f.opts.StateHook.StateChanged(ctx, event); err != nil {
		f.record(ctx, "dashboard.state_hook.error", map[string]any{"error": err.Error()})
	}
}

func (f *UploadFlow) record(ctx context.Context, event string, payload map[string]any) {
	payload["session_id"] = f.opts.SessionID
	f.opts.Telemetry.Record(ctx, event, payload)
}
