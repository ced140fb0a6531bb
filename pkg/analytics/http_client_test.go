package analytics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewHTTPClient(HTTPConfig{
		BaseURL: server.URL + "/api/",
		Retry:   &RetryPolicy{MaxRetries: 1, Delay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(HTTPConfig{}); !errors.Is(err, ErrBaseURLRequired) {
		t.Fatalf("expected ErrBaseURLRequired, got %v", err)
	}
}

func TestHTTPClientCheckDataset(t *testing.T) {
	var present atomic.Bool
	present.Store(true)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/check_db" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if present.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ok, err := client.CheckDataset(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected dataset present, got %v %v", ok, err)
	}
	present.Store(false)
	ok, err = client.CheckDataset(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no dataset, got %v %v", ok, err)
	}
}

func TestHTTPClientCheckDatasetTreatsOtherSuccessAsPresent(t *testing.T) {
	var status atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	})
	for _, code := range []int{http.StatusOK, http.StatusAccepted, http.StatusNonAuthoritativeInfo} {
		status.Store(int32(code))
		ok, err := client.CheckDataset(context.Background())
		if err != nil || !ok {
			t.Fatalf("status %d: expected dataset present, got %v %v", code, ok, err)
		}
	}
}

func TestHTTPClientCategoriesKeepOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"frozen_fish": ["pollock"], "caviar": [], "fresh_fish": ["salmon", "tuna"]}`)
	})
	taxonomy, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	names := taxonomy.Names()
	if strings.Join(names, ",") != "frozen_fish,caviar,fresh_fish" {
		t.Fatalf("expected document order, got %v", names)
	}
	if cat, _ := taxonomy.Category(2); len(cat.Items) != 2 || cat.Items[1] != "tuna" {
		t.Fatalf("unexpected items %#v", cat)
	}
}

func TestHTTPClientOverviewAndFilename(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/overall_statistics":
			_, _ = io.WriteString(w, `{"unique_users": 822, "items_views": "3810", "payed_carts": null, "countries": 14}`)
		case "/api/uploaded_filename":
			_, _ = io.WriteString(w, `{"filename": "logs.txt"}`)
		default:
			http.NotFound(w, r)
		}
	})
	metrics, err := client.OverallStatistics(context.Background())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	want := dashboard.OverviewMetrics{Countries: 14, ItemsViews: 3810, PaidCarts: 0, UniqueUsers: 822}
	if metrics != want {
		t.Fatalf("expected %#v, got %#v", want, metrics)
	}
	name, err := client.UploadedFilename(context.Background())
	if err != nil || name != "logs.txt" {
		t.Fatalf("expected logs.txt, got %q %v", name, err)
	}
}

func TestHTTPClientServerLoadAcceptsStringAverage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"avg": "128.5714", "statistics": [
			{"month": 8, "day": 1, "hour": 0, "requests_amount": 112},
			{"month": 8.0, "day": 1.0, "hour": 1.0, "requests_amount": 96}
		]}`)
	})
	report, err := client.ServerLoadPerHour(context.Background())
	if err != nil {
		t.Fatalf("server load: %v", err)
	}
	if report.Average < 128.57 || report.Average > 128.58 {
		t.Fatalf("unexpected average %v", report.Average)
	}
	if len(report.Statistics) != 2 || report.Statistics[1].Hour != 1 || report.Statistics[1].RequestsAmount != 96 {
		t.Fatalf("unexpected rows %#v", report.Statistics)
	}
}

func TestHTTPClientReportQueries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/api/rep_unpayed_carts":
			if q.Get("date_1") != "2018-08-01" || q.Get("date_2") != "2018-08-03" {
				t.Errorf("unexpected dates %v", q)
			}
			_, _ = io.WriteString(w, `[8, {"cart_id": 15}, "23"]`)
		case "/api/rep_repeated_payments":
			_, _ = io.WriteString(w, `{"amount": null, "data": {"10.0.0.2": 2, "10.0.0.1": 1}}`)
		case "/api/rep_time_pattern":
			if q.Get("category") != "fresh_fish" || q.Get("k") != "6" {
				t.Errorf("unexpected time pattern query %v", q)
			}
			_, _ = io.WriteString(w, `{"0.0": 3, "1.0": 9}`)
		case "/api/rep_pattern_view", "/api/rep_pattern_buy":
			if q.Get("category") != "fresh_fish" || q.Get("item") != "salmon" {
				t.Errorf("unexpected item query %v", q)
			}
			_, _ = io.WriteString(w, `{"tuna": 5, "trout": 2}`)
		case "/api/rep_actions_per_country":
			_, _ = io.WriteString(w, `{"Poland": 4, "Germany": 9}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()
	dates := dashboard.DateRange{From: "2018-08-01", To: "2018-08-03"}

	carts, err := client.UnpaidCarts(ctx, dates)
	if err != nil {
		t.Fatalf("carts: %v", err)
	}
	if len(carts) != 3 || carts[0].CartID != 8 || carts[1].CartID != 15 || carts[2].CartID != 23 {
		t.Fatalf("unexpected carts %#v", carts)
	}

	repeated, err := client.RepeatedPayments(ctx, dates)
	if err != nil {
		t.Fatalf("repeated: %v", err)
	}
	if repeated.Amount != 0 || strings.Join(repeated.Data.Keys(), ",") != "10.0.0.2,10.0.0.1" {
		t.Fatalf("unexpected repeated payments %#v", repeated)
	}

	slots, err := client.TimePattern(ctx, dashboard.TimePatternQuery{Category: "fresh_fish", Divisor: 6})
	if err != nil || len(slots) != 2 || slots[1].Count != 9 {
		t.Fatalf("unexpected time pattern %#v %v", slots, err)
	}

	item := dashboard.ItemQuery{Category: "fresh_fish", Item: "salmon"}
	view, err := client.PatternView(ctx, item)
	if err != nil || strings.Join(view.Keys(), ",") != "tuna,trout" {
		t.Fatalf("unexpected pattern view %#v %v", view, err)
	}
	buy, err := client.PatternBuy(ctx, item)
	if err != nil || len(buy) != 2 {
		t.Fatalf("unexpected pattern buy %#v %v", buy, err)
	}

	countries, err := client.ActionsPerCountry(ctx)
	if err != nil || countries[0].Key != "Poland" || countries[1].Count != 9 {
		t.Fatalf("unexpected countries %#v %v", countries, err)
	}
}

func TestHTTPClientRejectsMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"Poland": {"nested": true}}`)
	})
	if _, err := client.ActionsPerCountry(context.Background()); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"Poland": 1}`)
	})
	series, err := client.ActionsPerCountry(context.Background())
	if err != nil || len(series) != 1 {
		t.Fatalf("expected retry to succeed, got %#v %v", series, err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected two attempts, got %d", hits.Load())
	}
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "missing", http.StatusNotFound)
	})
	_, err := client.ActionsPerCountry(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", hits.Load())
	}
}

func TestHTTPClientUpload(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != "/api/upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "", http.StatusForbidden)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "logs.txt" {
			t.Errorf("unexpected filename %s", header.Filename)
		}
		if strings.Contains(string(data), "INFO:") {
			_, _ = io.WriteString(w, `{"status": "ok"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status": "wrong format"}`)
	})
	ctx := context.Background()

	result, err := client.Upload(ctx, dashboard.UploadFile{Name: "/tmp/logs.txt", Content: strings.NewReader("shop_api | INFO: 1.1.1.1 https://all_to_the_bottom.com/\n")})
	if err != nil || result.Status != dashboard.UploadStatusOK {
		t.Fatalf("expected ok, got %#v %v", result, err)
	}
	result, err = client.Upload(ctx, dashboard.UploadFile{Name: "logs.txt", Content: strings.NewReader("\x89PNG")})
	if err != nil || result.Status != dashboard.UploadStatusWrongFormat {
		t.Fatalf("expected wrong format, got %#v %v", result, err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected two upload requests, got %d", hits.Load())
	}
}

func TestHTTPClientUploadIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "boom", http.StatusBadGateway)
	})
	_, err := client.Upload(context.Background(), dashboard.UploadFile{Name: "logs.txt", Content: strings.NewReader("x")})
	if err == nil {
		t.Fatalf("expected upload error")
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one attempt, got %d", hits.Load())
	}
}

func TestHTTPClientHonoursContext(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.ActionsPerCountry(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
