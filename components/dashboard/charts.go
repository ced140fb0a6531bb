package dashboard

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "360px"

// ErrNoChart is returned for reports that render as a table only.
var ErrNoChart = errors.New("dashboard: report has no chart")

// ChartRenderer turns loaded report buckets into go-echarts markup.
type ChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
}

// ChartOption customizes a ChartRenderer.
type ChartOption func(*ChartRenderer)

// WithChartCache injects a render cache. A nil cache renders every time.
func WithChartCache(cache RenderCache) ChartOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the echarts theme (defaults to Westeros).
func WithChartTheme(theme string) ChartOption {
	return func(r *ChartRenderer) {
		if theme != "" {
			r.theme = theme
		}
	}
}

// WithChartAssetsHost rewrites the host the echarts runtime loads from.
func WithChartAssetsHost(host string) ChartOption {
	return func(r *ChartRenderer) {
		r.assetsHost = host
	}
}

// NewChartRenderer builds a renderer with a five minute cache.
func NewChartRenderer(options ...ChartOption) *ChartRenderer {
	r := &ChartRenderer{
		cache: NewChartCache(5 * time.Minute),
		theme: types.ThemeWesteros,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Render returns chart HTML for a loaded report. Unloaded reports and the
// unpaid carts table return ErrNoChart.
func (r *ChartRenderer) Render(state ReportState) (string, error) {
	if !state.Loaded() || state.Kind == ReportUnpaidCarts {
		return "", fmt.Errorf("%w: %s", ErrNoChart, state.Kind)
	}
	render := func() (string, error) {
		return r.render(state)
	}
	if r.cache == nil {
		return render()
	}
	version := fmt.Sprintf("%d:%s:%s", state.Generation, r.theme, paramsHash(state.Params))
	return r.cache.GetOrRender(string(state.Kind), version, render)
}

func (r *ChartRenderer) render(state ReportState) (string, error) {
	title := state.Kind.Title()
	switch b := state.Bucket.(type) {
	case ServerLoadBucket:
		line := charts.NewLine()
		line.SetGlobalOptions(r.globalOptions(title, fmt.Sprintf("average %.2f requests/hour", b.Average))...)
		labels := make([]string, len(b.Statistics))
		requests := make([]opts.LineData, len(b.Statistics))
		average := make([]opts.LineData, len(b.Statistics))
		for i, row := range b.Statistics {
			labels[i] = serverLoadLabel(row)
			requests[i] = opts.LineData{Name: labels[i], Value: row.RequestsAmount}
			average[i] = opts.LineData{Value: b.Average}
		}
		line.SetXAxis(labels).
			AddSeries("Requests", requests).
			AddSeries("Average", average)
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	case ActionsPerCountryBucket:
		return r.bar(title, "", b.Country, "Actions", b.Actions)
	case RepeatPurchasesBucket:
		return r.bar(title, fmt.Sprintf("%d repeat purchases", b.TotalAmount), b.IPList, "Purchases", b.Amount)
	case TimePatternBucket:
		return r.bar(title, state.Params.Category, slotLabels(len(b.Amount), state.Params.Divisor), "Purchases", b.Amount)
	case PatternBuyBucket:
		return r.bar(title, state.Params.Item, b.Category, "Purchases", b.Purchases)
	case PatternViewBucket:
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalOptions(title, state.Params.Item)...)
		data := make([]opts.PieData, len(b.Country))
		for i, country := range b.Country {
			data[i] = opts.PieData{Name: country, Value: valueAt(b.Actions, i)}
		}
		pie.AddSeries("Views", data)
		return renderChart(pie)
	default:
		return "", fmt.Errorf("%w: %s", ErrNoChart, state.Kind)
	}
}

func (r *ChartRenderer) bar(title, subtitle string, labels []string, series string, values []int64) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(r.globalOptions(title, subtitle)...)
	data := make([]opts.BarData, len(labels))
	for i, label := range labels {
		data[i] = opts.BarData{Name: label, Value: valueAt(values, i)}
	}
	bar.SetXAxis(labels).AddSeries(series, data)
	return renderChart(bar)
}

func (r *ChartRenderer) globalOptions(title, subtitle string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func serverLoadLabel(row ServerLoadRow) string {
	if row.Month > 0 {
		return fmt.Sprintf("%02d-%02d %02d:00", int(row.Month), int(row.Day), int(row.Hour))
	}
	return fmt.Sprintf("%02d %02d:00", int(row.Day), int(row.Hour))
}

// slotLabels names n slots of divisor hours each ("00-06", "06-12", ...).
// Without a divisor the slot index is used.
func slotLabels(n, divisor int) []string {
	labels := make([]string, n)
	for i := range labels {
		if divisor <= 0 {
			labels[i] = strconv.Itoa(i)
			continue
		}
		labels[i] = fmt.Sprintf("%02d-%02d", i*divisor, (i+1)*divisor)
	}
	return labels
}

func valueAt(values []int64, i int) int64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func paramsHash(params ReportParams) string {
	b, err := json.Marshal(params)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
