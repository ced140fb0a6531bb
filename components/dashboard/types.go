package dashboard

import (
	"context"
	"io"
)

// DatasetClient answers whether the backend currently holds a parsed log file.
type DatasetClient interface {
	CheckDataset(ctx context.Context) (bool, error)
	UploadedFilename(ctx context.Context) (string, error)
}

// TaxonomyClient loads the category -> item hierarchy of the loaded dataset.
type TaxonomyClient interface {
	Categories(ctx context.Context) (Taxonomy, error)
}

// OverviewClient loads the headline counters shown above the reports.
type OverviewClient interface {
	OverallStatistics(ctx context.Context) (OverviewMetrics, error)
}

// ReportClient fetches the raw report payloads. Implementations return the
// server shapes; reshaping into buckets happens in this package.
type ReportClient interface {
	ServerLoadPerHour(ctx context.Context) (ServerLoadReport, error)
	ActionsPerCountry(ctx context.Context) (CountSeries, error)
	UnpaidCarts(ctx context.Context, dates DateRange) ([]CartRecord, error)
	RepeatedPayments(ctx context.Context, dates DateRange) (RepeatedPaymentsReport, error)
	TimePattern(ctx context.Context, query TimePatternQuery) (CountSeries, error)
	PatternView(ctx context.Context, query ItemQuery) (CountSeries, error)
	PatternBuy(ctx context.Context, query ItemQuery) (CountSeries, error)
}

// UploadClient submits a log file for server side parsing.
type UploadClient interface {
	Upload(ctx context.Context, file UploadFile) (UploadResult, error)
}

// Backend is the union of every call the dashboard makes against the API.
type Backend interface {
	DatasetClient
	TaxonomyClient
	OverviewClient
	ReportClient
	UploadClient
}

// Navigator switches between the upload and dashboard views.
type Navigator interface {
	Navigate(ctx context.Context, view View) error
}

// NavigatorFunc adapts a function into a Navigator.
type NavigatorFunc func(ctx context.Context, view View) error

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, view View) error {
	return f(ctx, view)
}

// StateHook notifies transports (websocket, SSE) that view state changed.
type StateHook interface {
	StateChanged(ctx context.Context, event StateEvent) error
}

// View identifies one of the two client views.
type View string

const (
	ViewUpload    View = "upload"
	ViewDashboard View = "dashboard"
)

// OverviewMetrics are the four scalar counters of the loaded dataset.
type OverviewMetrics struct {
	Countries   int64 `json:"countries" yaml:"countries"`
	ItemsViews  int64 `json:"items_views" yaml:"items_views"`
	PaidCarts   int64 `json:"payed_carts" yaml:"payed_carts"`
	UniqueUsers int64 `json:"unique_users" yaml:"unique_users"`
}

// DateRange holds the two date bounds bound to a date gated report.
type DateRange struct {
	From string `json:"date_1" yaml:"date_1"`
	To   string `json:"date_2" yaml:"date_2"`
}

// TimePatternQuery is sent with Divisor already transformed from the granularity.
type TimePatternQuery struct {
	Category string
	Divisor  int
}

// ItemQuery selects a single item inside a category.
type ItemQuery struct {
	Category string
	Item     string
}

// KeyCount is one entry of an ordered key -> count mapping.
type KeyCount struct {
	Key   string `json:"key" yaml:"key"`
	Count int64  `json:"count" yaml:"count"`
}

// CountSeries preserves the order in which the server emitted the mapping.
type CountSeries []KeyCount

// Keys returns the mapping keys in order.
func (s CountSeries) Keys() []string {
	out := make([]string, len(s))
	for i, entry := range s {
		out[i] = entry.Key
	}
	return out
}

// Counts returns the mapping values in order.
func (s CountSeries) Counts() []int64 {
	out := make([]int64, len(s))
	for i, entry := range s {
		out[i] = entry.Count
	}
	return out
}

// ServerLoadRow is a single hour of request volume.
type ServerLoadRow struct {
	Month          float64 `json:"month" yaml:"month"`
	Day            float64 `json:"day" yaml:"day"`
	Hour           float64 `json:"hour" yaml:"hour"`
	RequestsAmount int64   `json:"requests_amount" yaml:"requests_amount"`
}

// ServerLoadReport is the server_load_per_hour payload.
type ServerLoadReport struct {
	Average    float64         `json:"avg" yaml:"avg"`
	Statistics []ServerLoadRow `json:"statistics" yaml:"statistics"`
}

// CartRecord identifies an abandoned cart.
type CartRecord struct {
	CartID int64 `json:"cart_id" yaml:"cart_id"`
}

// RepeatedPaymentsReport is the rep_repeated_payments payload.
type RepeatedPaymentsReport struct {
	Data   CountSeries `json:"data" yaml:"data"`
	Amount int64       `json:"amount" yaml:"amount"`
}

// UploadFile is a log file submitted from the upload view.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// UploadResult is the backend verdict for an upload.
type UploadResult struct {
	Status string `json:"status"`
}

const (
	UploadStatusOK          = "ok"
	UploadStatusWrongFormat = "wrong format"
)

// StateEvent describes a view state change transports might care about.
type StateEvent struct {
	SessionID string     `json:"session_id"`
	Scope     string     `json:"scope"`
	Report    ReportKind `json:"report,omitempty"`
	Section   Section    `json:"section,omitempty"`
	Reason    string     `json:"reason"`
}

const (
	ScopeReport    = "report"
	ScopeSection   = "section"
	ScopeSelection = "selection"
	ScopeUpload    = "upload"
	ScopeNavigate  = "navigate"
)
