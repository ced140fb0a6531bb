package dashboard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartRendererRendersBarReports(t *testing.T) {
	renderer := NewChartRenderer(WithChartCache(nil))
	state := ReportState{
		Kind:   ReportActionsPerCountry,
		Bucket: reshapeActionsPerCountry(CountSeries{{Key: "Poland", Count: 12}, {Key: "Italy", Count: 3}}),
	}

	html, err := renderer.Render(state)
	require.NoError(t, err)
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Poland")
	assert.Contains(t, html, "Actions")
}

func TestChartRendererServerLoadAddsAverageSeries(t *testing.T) {
	renderer := NewChartRenderer(WithChartCache(nil))
	state := ReportState{
		Kind: ReportServerLoad,
		Bucket: reshapeServerLoad(ServerLoadReport{
			Average:    4.5,
			Statistics: []ServerLoadRow{{Month: 8, Day: 1, Hour: 0, RequestsAmount: 4}, {Month: 8, Day: 1, Hour: 1, RequestsAmount: 5}},
		}),
	}

	html, err := renderer.Render(state)
	require.NoError(t, err)
	assert.Contains(t, html, "Average")
	assert.Contains(t, html, "08-01 01:00")
}

func TestChartRendererPatternViewIsPie(t *testing.T) {
	renderer := NewChartRenderer(WithChartCache(nil))
	state := ReportState{
		Kind:   ReportPatternView,
		Bucket: reshapePatternView(CountSeries{{Key: "Norway", Count: 2}}),
		Params: ReportParams{Category: "fish", Item: "salmon"},
	}

	html, err := renderer.Render(state)
	require.NoError(t, err)
	assert.Contains(t, html, "pie")
	assert.Contains(t, html, "Norway")
}

func TestChartRendererRejectsTablesAndUnloaded(t *testing.T) {
	renderer := NewChartRenderer()

	_, err := renderer.Render(ReportState{Kind: ReportUnpaidCarts, Bucket: reshapeUnpaidCarts([]CartRecord{{CartID: 1}})})
	assert.True(t, errors.Is(err, ErrNoChart))

	_, err = renderer.Render(ReportState{Kind: ReportServerLoad, Bucket: EmptyBucket(ReportServerLoad)})
	assert.True(t, errors.Is(err, ErrNoChart))
}

func TestChartRendererCachesPerGeneration(t *testing.T) {
	cache := NewChartCache(time.Minute)
	renderer := NewChartRenderer(WithChartCache(cache))
	state := ReportState{
		Kind:       ReportTimePattern,
		Bucket:     reshapeTimePattern(CountSeries{{Key: "0", Count: 1}, {Key: "1", Count: 2}}),
		Params:     ReportParams{Category: "fish", K: 2, Divisor: 12},
		Generation: 3,
	}

	html, err := renderer.Render(state)
	require.NoError(t, err)
	assert.Contains(t, html, "00-12")
	assert.Contains(t, html, "12-24")

	again, err := renderer.Render(state)
	require.NoError(t, err)
	assert.Equal(t, html, again)

	state.Generation = 4
	_, err = renderer.Render(state)
	require.NoError(t, err)
	assert.Len(t, cache.slots, 1)
	assert.Contains(t, cache.slots[string(ReportTimePattern)].version, "4:")
}

func TestSlotLabels(t *testing.T) {
	assert.Equal(t, []string{"00-06", "06-12", "12-18", "18-24"}, slotLabels(4, 6))
	assert.Equal(t, []string{"0", "1"}, slotLabels(2, 0))
}
