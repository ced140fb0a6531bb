package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goliatone/go-logdash/components/dashboard"
	"github.com/goliatone/go-logdash/pkg/analytics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validLogs = "shop_api      | 2018-08-01 00:01:35 [YRHGKFYC] INFO: 121.165.118.201 https://all_to_the_bottom.com/\n"

type navLog struct {
	mu    sync.Mutex
	views []dashboard.View
}

func (n *navLog) Navigate(_ context.Context, view dashboard.View) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.views = append(n.views, view)
	return nil
}

func (n *navLog) Views() []dashboard.View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]dashboard.View(nil), n.views...)
}

type stack struct {
	app     *testApp
	backend *analytics.MockClient
	session *dashboard.Session
	upload  *dashboard.UploadFlow
	nav     *navLog
	pages   *stubPages
}

type testApp struct {
	t    *testing.T
	test func(*http.Request) (*http.Response, error)
}

func (a *testApp) do(req *http.Request) *http.Response {
	a.t.Helper()
	resp, err := a.test(req)
	require.NoError(a.t, err)
	return resp
}

func newStack(t *testing.T, fixtures analytics.Fixtures) *stack {
	t.Helper()
	backend := analytics.NewMockClient(fixtures)
	nav := &navLog{}
	events := dashboard.NewBroadcastHook()
	session := dashboard.NewSession(dashboard.Options{Backend: backend, Navigator: nav, StateHook: events})
	upload := dashboard.NewUploadFlow(dashboard.UploadOptions{Client: backend, Navigator: nav, StateHook: events})
	pages := &stubPages{}
	app := NewApp(ServerOptions{
		Session: session,
		Upload:  upload,
		Pages:   pages,
		Events:  events,
		Metrics: promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
	})
	return &stack{
		app:     &testApp{t: t, test: func(r *http.Request) (*http.Response, error) { return app.Test(r, -1) }},
		backend: backend,
		session: session,
		upload:  upload,
		nav:     nav,
		pages:   pages,
	}
}

func countCalls(calls []string, call string) int {
	n := 0
	for _, c := range calls {
		if c == call {
			n++
		}
	}
	return n
}

type stateView struct {
	Filename         string          `json:"filename"`
	SelectedCategory string          `json:"selected_category"`
	Gates            dashboard.Gates `json:"gates"`
}

func decodeState(t *testing.T, resp *http.Response) stateView {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view stateView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	return view
}

func TestScenarioNoDatasetRedirectsToUpload(t *testing.T) {
	s := newStack(t, analytics.Fixtures{Dataset: false})

	resp := s.app.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, []string{analytics.CallCheckDataset}, s.backend.Calls(), "no taxonomy or overview fetch")
	assert.Equal(t, []dashboard.View{dashboard.ViewUpload}, s.nav.Views())
}

func TestScenarioValidUploadNavigatesToDashboard(t *testing.T) {
	s := newStack(t, analytics.Fixtures{})

	resp := s.app.do(uploadRequest(t, "access.log", validLogs))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	assert.Equal(t, []dashboard.View{dashboard.ViewDashboard}, s.nav.Views())

	resp = s.app.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeState(t, s.app.do(jsonRequest(http.MethodGet, "/dashboard/_state", nil)))
	assert.Equal(t, "access.log", view.Filename)
}

func TestScenarioInvalidUploadShowsWarning(t *testing.T) {
	s := newStack(t, analytics.Fixtures{})

	resp := s.app.do(uploadRequest(t, "photo.png", "\x89PNG\r\n\x1a\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp = s.app.do(jsonRequest(http.MethodGet, "/upload/_state", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state dashboard.UploadState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, dashboard.UploadRejectedFormat, state.Status)
	assert.True(t, state.WarningVisible)
	assert.True(t, state.SubmitEnabled)
	assert.False(t, state.ProgressVisible)
	assert.Empty(t, s.nav.Views())
}

func TestScenarioUploadWithoutFileShowsWarning(t *testing.T) {
	s := newStack(t, analytics.Fixtures{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "forgot the file"))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp := s.app.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, 1, s.pages.upload)
	state := s.upload.State()
	assert.Equal(t, dashboard.UploadRejectedFormat, state.Status)
	assert.True(t, state.WarningVisible)
	assert.True(t, state.SubmitEnabled)
	assert.Equal(t, dashboard.ErrNoFileSelected.Error(), state.Err)
	assert.NotContains(t, s.backend.Calls(), analytics.CallUpload)
	assert.Empty(t, s.nav.Views())
}

func TestScenarioItemSelectionUnlocksPatternReports(t *testing.T) {
	s := newStack(t, analytics.Fixtures{
		Dataset:  true,
		Taxonomy: dashboard.NewTaxonomy(dashboard.Category{Name: "fish", Items: []string{"tuna", "salmon"}}),
		PatternView: map[string]map[string]dashboard.CountSeries{
			"fish": {"tuna": {{Key: "Poland", Count: 3}}},
		},
	})
	resp := s.app.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decodeState(t, s.app.do(jsonRequest(http.MethodPost, "/dashboard/category", map[string]any{"name": "fish"})))
	assert.Equal(t, "fish", view.SelectedCategory)
	assert.True(t, view.Gates.ItemControl)
	assert.False(t, view.Gates.Enabled(dashboard.ReportPatternView))
	assert.False(t, view.Gates.Enabled(dashboard.ReportPatternBuy))

	view = decodeState(t, s.app.do(jsonRequest(http.MethodPost, "/dashboard/item", map[string]any{"item": "tuna"})))
	assert.True(t, view.Gates.Enabled(dashboard.ReportPatternView))
	assert.True(t, view.Gates.Enabled(dashboard.ReportPatternBuy))

	resp = s.app.do(jsonRequest(http.MethodGet, "/dashboard/gates", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var gates dashboard.Gates
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&gates))
	assert.True(t, gates.Enabled(dashboard.ReportPatternView))
	assert.False(t, gates.Enabled(dashboard.ReportTimePattern))

	resp = s.app.do(jsonRequest(http.MethodPost, "/dashboard/reports/pattern-view", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	report, ok := s.session.Report(dashboard.ReportPatternView)
	require.True(t, ok)
	assert.True(t, report.Loaded())

	resp = s.app.do(jsonRequest(http.MethodGet, "/dashboard/reports/pattern-view", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var read struct {
		Kind   dashboard.ReportKind   `json:"kind"`
		Params dashboard.ReportParams `json:"params"`
		Failed bool                   `json:"failed"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&read))
	assert.Equal(t, dashboard.ReportPatternView, read.Kind)
	assert.Equal(t, "tuna", read.Params.Item)
	assert.False(t, read.Failed)
	assert.Equal(t, 1, countCalls(s.backend.Calls(), analytics.CallPatternView), "reading a report does not fetch it")

	resp = s.app.do(jsonRequest(http.MethodGet, "/dashboard/reports/weather", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	view = decodeState(t, s.app.do(jsonRequest(http.MethodPost, "/dashboard/category", map[string]any{"name": "fish"})))
	assert.False(t, view.Gates.Enabled(dashboard.ReportPatternView))
	assert.False(t, view.Gates.Enabled(dashboard.ReportPatternBuy))

	resp = s.app.do(jsonRequest(http.MethodPost, "/dashboard/reports/pattern-buy", nil))
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "closed gate refuses the trigger")
}

func TestMetricsEndpointIsMounted(t *testing.T) {
	s := newStack(t, analytics.Fixtures{})
	resp := s.app.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
