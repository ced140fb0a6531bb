package analytics

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

// Call names accepted by MockClient.SetError, matching the backend endpoints.
const (
	CallCheckDataset      = "check_db"
	CallUploadedFilename  = "uploaded_filename"
	CallCategories        = "categories"
	CallOverallStatistics = "overall_statistics"
	CallServerLoad        = "server_load_per_hour"
	CallActionsPerCountry = "rep_actions_per_country"
	CallUnpaidCarts       = "rep_unpayed_carts"
	CallRepeatedPayments  = "rep_repeated_payments"
	CallTimePattern       = "rep_time_pattern"
	CallPatternView       = "rep_pattern_view"
	CallPatternBuy        = "rep_pattern_buy"
	CallUpload            = "upload"
)

// logLine matches a shop access log entry: "... INFO: <ip> <url>".
var logLine = regexp.MustCompile(`INFO: \S+ \S+`)

const sniffLines = 64

// MockClient implements Client using in-memory fixtures. Report calls ignore
// date filters.
type MockClient struct {
	mu      sync.RWMutex
	data    Fixtures
	errs    map[string]error
	latency time.Duration
	calls   []string
}

// NewMockClient builds a mock backend from the provided fixtures.
func NewMockClient(data Fixtures) *MockClient {
	return &MockClient{data: data, errs: make(map[string]error)}
}

// SetError makes every subsequent call named call fail with err. A nil err clears it.
func (c *MockClient) SetError(call string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, call)
		return
	}
	c.errs[call] = err
}

// SetLatency delays every call, honouring context cancellation.
func (c *MockClient) SetLatency(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latency = d
}

// Calls returns the call names received so far.
func (c *MockClient) Calls() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.calls...)
}

func (c *MockClient) CheckDataset(ctx context.Context) (bool, error) {
	if err := c.enter(ctx, CallCheckDataset); err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Dataset, nil
}

func (c *MockClient) UploadedFilename(ctx context.Context) (string, error) {
	if err := c.enter(ctx, CallUploadedFilename); err != nil {
		return "", err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Filename, nil
}

func (c *MockClient) Categories(ctx context.Context) (dashboard.Taxonomy, error) {
	if err := c.enter(ctx, CallCategories); err != nil {
		return dashboard.Taxonomy{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return dashboard.NewTaxonomy(c.data.Taxonomy.Categories...), nil
}

func (c *MockClient) OverallStatistics(ctx context.Context) (dashboard.OverviewMetrics, error) {
	if err := c.enter(ctx, CallOverallStatistics); err != nil {
		return dashboard.OverviewMetrics{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Overview, nil
}

func (c *MockClient) ServerLoadPerHour(ctx context.Context) (dashboard.ServerLoadReport, error) {
	if err := c.enter(ctx, CallServerLoad); err != nil {
		return dashboard.ServerLoadReport{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	report := dashboard.ServerLoadReport{
		Average:    c.data.ServerLoad.Average,
		Statistics: make([]dashboard.ServerLoadRow, len(c.data.ServerLoad.Statistics)),
	}
	copy(report.Statistics, c.data.ServerLoad.Statistics)
	return report, nil
}

func (c *MockClient) ActionsPerCountry(ctx context.Context) (dashboard.CountSeries, error) {
	if err := c.enter(ctx, CallActionsPerCountry); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSeries(c.data.ActionsPerCountry), nil
}

func (c *MockClient) UnpaidCarts(ctx context.Context, _ dashboard.DateRange) ([]dashboard.CartRecord, error) {
	if err := c.enter(ctx, CallUnpaidCarts); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.CartRecord{}, c.data.UnpaidCarts...), nil
}

func (c *MockClient) RepeatedPayments(ctx context.Context, _ dashboard.DateRange) (dashboard.RepeatedPaymentsReport, error) {
	if err := c.enter(ctx, CallRepeatedPayments); err != nil {
		return dashboard.RepeatedPaymentsReport{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return dashboard.RepeatedPaymentsReport{
		Amount: c.data.RepeatedPayments.Amount,
		Data:   cloneSeries(c.data.RepeatedPayments.Data),
	}, nil
}

// TimePattern folds the hourly purchases of the category into slots of
// query.Divisor hours, keyed by slot index.
func (c *MockClient) TimePattern(ctx context.Context, query dashboard.TimePatternQuery) (dashboard.CountSeries, error) {
	if err := c.enter(ctx, CallTimePattern); err != nil {
		return nil, err
	}
	if query.Divisor < 1 {
		return nil, fmt.Errorf("%w: divisor %d", ErrInvalidResponse, query.Divisor)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	slots := make(map[int]int64)
	for _, entry := range c.data.HourlyPurchases[query.Category] {
		hour, err := strconv.Atoi(entry.Key)
		if err != nil {
			continue
		}
		slots[hour/query.Divisor] += entry.Count
	}
	keys := make([]int, 0, len(slots))
	for slot := range slots {
		keys = append(keys, slot)
	}
	sort.Ints(keys)
	out := make(dashboard.CountSeries, 0, len(keys))
	for _, slot := range keys {
		out = append(out, dashboard.KeyCount{Key: strconv.Itoa(slot), Count: slots[slot]})
	}
	return out, nil
}

func (c *MockClient) PatternView(ctx context.Context, query dashboard.ItemQuery) (dashboard.CountSeries, error) {
	if err := c.enter(ctx, CallPatternView); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSeries(c.data.PatternView[query.Category][query.Item]), nil
}

func (c *MockClient) PatternBuy(ctx context.Context, query dashboard.ItemQuery) (dashboard.CountSeries, error) {
	if err := c.enter(ctx, CallPatternBuy); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSeries(c.data.PatternBuy[query.Category][query.Item]), nil
}

// Upload accepts files whose first lines look like shop access logs. An
// accepted upload marks the dataset present under the file's name.
func (c *MockClient) Upload(ctx context.Context, file dashboard.UploadFile) (dashboard.UploadResult, error) {
	if err := c.enter(ctx, CallUpload); err != nil {
		return dashboard.UploadResult{}, err
	}
	if file.Content == nil || !looksLikeLogs(file.Content) {
		return dashboard.UploadResult{Status: dashboard.UploadStatusWrongFormat}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Dataset = true
	c.data.Filename = filepath.Base(file.Name)
	return dashboard.UploadResult{Status: dashboard.UploadStatusOK}, nil
}

func (c *MockClient) enter(ctx context.Context, call string) error {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	err := c.errs[call]
	latency := c.latency
	c.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func looksLikeLogs(r io.Reader) bool {
	scanner := bufio.NewScanner(r)
	seen := 0
	for scanner.Scan() && seen < sniffLines {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !logLine.Match(line) {
			return false
		}
		seen++
	}
	return seen > 0 && scanner.Err() == nil
}

func cloneSeries(in dashboard.CountSeries) dashboard.CountSeries {
	out := make(dashboard.CountSeries, len(in))
	copy(out, in)
	return out
}
