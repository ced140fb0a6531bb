package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

const (
	DefaultTimeout   = 10 * time.Second
	maxResponseBytes = 32 << 20
	uploadField      = "file"
)

var (
	ErrBaseURLRequired = errors.New("analytics: base url is required")
	ErrInvalidResponse = errors.New("analytics: invalid response")
)

// StatusError is returned for non 2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("analytics: remote error %d", e.Code)
	}
	return fmt.Sprintf("analytics: remote error %d: %s", e.Code, e.Body)
}

// HTTPConfig configures the HTTP analytics client.
type HTTPConfig struct {
	// BaseURL points at the API root, e.g. http://127.0.0.1:5000/api.
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// Retry applies to GET requests only. The zero value means DefaultRetryPolicy.
	Retry *RetryPolicy
	// Validator checks response bodies; nil builds one. Set SkipValidation to disable.
	Validator      *ResponseValidator
	SkipValidation bool
}

// HTTPClient talks to the log analytics backend over its REST endpoints.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	retry     RetryPolicy
	validator *ResponseValidator
}

// NewHTTPClient builds a client for a live backend.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("analytics: parse base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	policy := DefaultRetryPolicy()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}
	var validator *ResponseValidator
	if !cfg.SkipValidation {
		validator = cfg.Validator
		if validator == nil {
			validator = NewResponseValidator()
		}
	}
	return &HTTPClient{
		baseURL:   base,
		client:    httpClient,
		retry:     policy,
		validator: validator,
	}, nil
}

// CheckDataset reports whether the backend holds a parsed log file. 204 means
// none; any other success status means one is loaded.
func (c *HTTPClient) CheckDataset(ctx context.Context) (bool, error) {
	_, status, err := c.get(ctx, "/check_db", nil, "")
	if err != nil {
		return false, err
	}
	return status != http.StatusNoContent, nil
}

// UploadedFilename returns the name of the file the dataset was parsed from.
func (c *HTTPClient) UploadedFilename(ctx context.Context) (string, error) {
	body, _, err := c.get(ctx, "/uploaded_filename", nil, schemaFilename)
	if err != nil {
		return "", err
	}
	var resp struct {
		Filename *string `json:"filename"`
	}
	if err := decodeJSON(body, &resp); err != nil {
		return "", err
	}
	if resp.Filename == nil {
		return "", nil
	}
	return *resp.Filename, nil
}

// Categories loads the ordered category -> items mapping.
func (c *HTTPClient) Categories(ctx context.Context) (dashboard.Taxonomy, error) {
	body, _, err := c.get(ctx, "/categories", nil, schemaCategories)
	if err != nil {
		return dashboard.Taxonomy{}, err
	}
	return decodeTaxonomy(body)
}

// OverallStatistics loads the four headline counters.
func (c *HTTPClient) OverallStatistics(ctx context.Context) (dashboard.OverviewMetrics, error) {
	body, _, err := c.get(ctx, "/overall_statistics", nil, schemaOverview)
	if err != nil {
		return dashboard.OverviewMetrics{}, err
	}
	var resp overviewResponse
	if err := decodeJSON(body, &resp); err != nil {
		return dashboard.OverviewMetrics{}, err
	}
	return resp.toMetrics(), nil
}

// ServerLoadPerHour loads request counts per hour and their average.
func (c *HTTPClient) ServerLoadPerHour(ctx context.Context) (dashboard.ServerLoadReport, error) {
	body, _, err := c.get(ctx, "/server_load_per_hour", nil, schemaServerLoad)
	if err != nil {
		return dashboard.ServerLoadReport{}, err
	}
	var resp serverLoadResponse
	if err := decodeJSON(body, &resp); err != nil {
		return dashboard.ServerLoadReport{}, err
	}
	return resp.toReport(), nil
}

// ActionsPerCountry loads actions per country in server order.
func (c *HTTPClient) ActionsPerCountry(ctx context.Context) (dashboard.CountSeries, error) {
	return c.countSeries(ctx, "/rep_actions_per_country", nil)
}

// UnpaidCarts lists the carts left unpaid between the two dates.
func (c *HTTPClient) UnpaidCarts(ctx context.Context, dates dashboard.DateRange) ([]dashboard.CartRecord, error) {
	body, _, err := c.get(ctx, "/rep_unpayed_carts", dateQuery(dates), schemaCarts)
	if err != nil {
		return nil, err
	}
	return decodeCarts(body)
}

// RepeatedPayments loads repeat purchases per ip between the two dates.
func (c *HTTPClient) RepeatedPayments(ctx context.Context, dates dashboard.DateRange) (dashboard.RepeatedPaymentsReport, error) {
	body, _, err := c.get(ctx, "/rep_repeated_payments", dateQuery(dates), schemaRepeated)
	if err != nil {
		return dashboard.RepeatedPaymentsReport{}, err
	}
	var resp struct {
		Amount flexCount       `json:"amount"`
		Data   json.RawMessage `json:"data"`
	}
	if err := decodeJSON(body, &resp); err != nil {
		return dashboard.RepeatedPaymentsReport{}, err
	}
	data, err := decodeCountSeries(resp.Data)
	if err != nil {
		return dashboard.RepeatedPaymentsReport{}, err
	}
	return dashboard.RepeatedPaymentsReport{Data: data, Amount: int64(resp.Amount)}, nil
}

// TimePattern loads purchases per time slot for a category. The divisor is
// sent as the k parameter.
func (c *HTTPClient) TimePattern(ctx context.Context, query dashboard.TimePatternQuery) (dashboard.CountSeries, error) {
	params := url.Values{}
	params.Set("category", query.Category)
	params.Set("k", strconv.Itoa(query.Divisor))
	return c.countSeries(ctx, "/rep_time_pattern", params)
}

// PatternView loads what viewers of an item looked at next.
func (c *HTTPClient) PatternView(ctx context.Context, query dashboard.ItemQuery) (dashboard.CountSeries, error) {
	return c.countSeries(ctx, "/rep_pattern_view", itemQuery(query))
}

// PatternBuy loads what buyers of an item bought alongside it.
func (c *HTTPClient) PatternBuy(ctx context.Context, query dashboard.ItemQuery) (dashboard.CountSeries, error) {
	return c.countSeries(ctx, "/rep_pattern_buy", itemQuery(query))
}

// Upload posts the file as the multipart "file" field. Uploads are never retried.
func (c *HTTPClient) Upload(ctx context.Context, file dashboard.UploadFile) (dashboard.UploadResult, error) {
	if file.Content == nil {
		return dashboard.UploadResult{}, errors.New("analytics: upload content is required")
	}
	name := filepath.Base(strings.TrimSpace(file.Name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "logs.txt"
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile(uploadField, name)
		if err == nil {
			_, err = io.Copy(part, file.Content)
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	body, _, err := c.roundTrip(ctx, http.MethodPost, "/upload", nil, pr, writer.FormDataContentType())
	if err != nil {
		return dashboard.UploadResult{}, unwrapPermanent(err)
	}
	if err := c.validate(schemaUpload, body); err != nil {
		return dashboard.UploadResult{}, err
	}
	var result dashboard.UploadResult
	if err := decodeJSON(body, &result); err != nil {
		return dashboard.UploadResult{}, err
	}
	return result, nil
}

func (c *HTTPClient) countSeries(ctx context.Context, endpoint string, query url.Values) (dashboard.CountSeries, error) {
	body, _, err := c.get(ctx, endpoint, query, schemaCounts)
	if err != nil {
		return nil, err
	}
	return decodeCountSeries(body)
}

func (c *HTTPClient) get(ctx context.Context, endpoint string, query url.Values, schema string) ([]byte, int, error) {
	var (
		body   []byte
		status int
	)
	_, err := c.retry.do(ctx, func() error {
		var err error
		body, status, err = c.roundTrip(ctx, http.MethodGet, endpoint, query, nil, "")
		return err
	})
	if err != nil {
		return nil, status, err
	}
	if schema != "" {
		if err := c.validate(schema, body); err != nil {
			return nil, status, err
		}
	}
	return body, status, nil
}

// roundTrip performs one request. Client side failures and 4xx answers are
// marked permanent so the retry loop gives up on them.
func (c *HTTPClient) roundTrip(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, contentType string) ([]byte, int, error) {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, permanent(fmt.Errorf("analytics: build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("analytics: http request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("analytics: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		if resp.StatusCode < 500 {
			return nil, resp.StatusCode, permanent(statusErr)
		}
		return nil, resp.StatusCode, statusErr
	}
	return data, resp.StatusCode, nil
}

func (c *HTTPClient) validate(schema string, body []byte) error {
	if c.validator == nil {
		return nil
	}
	return c.validator.Validate(schema, body)
}

func decodeJSON(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		if errors.Is(err, ErrInvalidResponse) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func dateQuery(dates dashboard.DateRange) url.Values {
	params := url.Values{}
	params.Set("date_1", dates.From)
	params.Set("date_2", dates.To)
	return params
}

func itemQuery(query dashboard.ItemQuery) url.Values {
	params := url.Values{}
	params.Set("category", query.Category)
	params.Set("item", query.Item)
	return params
}

type overviewResponse struct {
	UniqueUsers flexCount `json:"unique_users"`
	ItemsViews  flexCount `json:"items_views"`
	PaidCarts   flexCount `json:"payed_carts"`
	Countries   flexCount `json:"countries"`
}

func (r overviewResponse) toMetrics() dashboard.OverviewMetrics {
	return dashboard.OverviewMetrics{
		Countries:   int64(r.Countries),
		ItemsViews:  int64(r.ItemsViews),
		PaidCarts:   int64(r.PaidCarts),
		UniqueUsers: int64(r.UniqueUsers),
	}
}

type serverLoadRow struct {
	Month          flexNumber `json:"month"`
	Day            flexNumber `json:"day"`
	Hour           flexNumber `json:"hour"`
	RequestsAmount flexCount  `json:"requests_amount"`
}

type serverLoadResponse struct {
	Avg        flexNumber      `json:"avg"`
	Statistics []serverLoadRow `json:"statistics"`
}

func (r serverLoadResponse) toReport() dashboard.ServerLoadReport {
	report := dashboard.ServerLoadReport{
		Average:    float64(r.Avg),
		Statistics: make([]dashboard.ServerLoadRow, len(r.Statistics)),
	}
	for i, row := range r.Statistics {
		report.Statistics[i] = dashboard.ServerLoadRow{
			Month:          float64(row.Month),
			Day:            float64(row.Day),
			Hour:           float64(row.Hour),
			RequestsAmount: int64(row.RequestsAmount),
		}
	}
	return report
}
