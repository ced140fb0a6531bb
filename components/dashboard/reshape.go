package dashboard

import (
	"context"
	"sort"
	"strconv"
)

func reshapeServerLoad(report ServerLoadReport) ServerLoadBucket {
	rows := make([]ServerLoadRow, len(report.Statistics))
	copy(rows, report.Statistics)
	return ServerLoadBucket{
		Loaded:     true,
		Average:    report.Average,
		Statistics: rows,
	}
}

func reshapeActionsPerCountry(series CountSeries) ActionsPerCountryBucket {
	return ActionsPerCountryBucket{
		Loaded:  true,
		Country: series.Keys(),
		Actions: series.Counts(),
	}
}

func reshapeUnpaidCarts(list []CartRecord) UnpaidCartsBucket {
	out := make([]CartRecord, len(list))
	copy(out, list)
	return UnpaidCartsBucket{Loaded: true, List: out}
}

func reshapeRepeatPurchases(report RepeatedPaymentsReport) RepeatPurchasesBucket {
	return RepeatPurchasesBucket{
		Loaded:      true,
		IPList:      report.Data.Keys(),
		Amount:      report.Data.Counts(),
		TotalAmount: report.Amount,
	}
}

// reshapeTimePattern orders slots by their numeric key; keys that are not
// numbers keep their document order after the numeric ones.
func reshapeTimePattern(series CountSeries) TimePatternBucket {
	ordered := make(CountSeries, len(series))
	copy(ordered, series)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, aErr := strconv.ParseFloat(ordered[i].Key, 64)
		b, bErr := strconv.ParseFloat(ordered[j].Key, 64)
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		default:
			return false
		}
	})
	return TimePatternBucket{Loaded: true, Amount: ordered.Counts()}
}

func reshapePatternView(series CountSeries) PatternViewBucket {
	return PatternViewBucket{
		Loaded:  true,
		Country: series.Keys(),
		Actions: series.Counts(),
	}
}

func reshapePatternBuy(series CountSeries) PatternBuyBucket {
	return PatternBuyBucket{
		Loaded:    true,
		Category:  series.Keys(),
		Purchases: series.Counts(),
	}
}

type reportFetcher func(ctx context.Context, client ReportClient, params ReportParams) (Bucket, error)

var reportFetchers = map[ReportKind]reportFetcher{
	ReportServerLoad: func(ctx context.Context, c ReportClient, _ ReportParams) (Bucket, error) {
		report, err := c.ServerLoadPerHour(ctx)
		if err != nil {
			return nil, err
		}
		return reshapeServerLoad(report), nil
	},
	ReportActionsPerCountry: func(ctx context.Context, c ReportClient, _ ReportParams) (Bucket, error) {
		series, err := c.ActionsPerCountry(ctx)
		if err != nil {
			return nil, err
		}
		return reshapeActionsPerCountry(series), nil
	},
	ReportUnpaidCarts: func(ctx context.Context, c ReportClient, p ReportParams) (Bucket, error) {
		list, err := c.UnpaidCarts(ctx, p.Dates)
		if err != nil {
			return nil, err
		}
		return reshapeUnpaidCarts(list), nil
	},
	ReportRepeatPurchases: func(ctx context.Context, c ReportClient, p ReportParams) (Bucket, error) {
		report, err := c.RepeatedPayments(ctx, p.Dates)
		if err != nil {
			return nil, err
		}
		return reshapeRepeatPurchases(report), nil
	},
	ReportTimePattern: func(ctx context.Context, c ReportClient, p ReportParams) (Bucket, error) {
		series, err := c.TimePattern(ctx, TimePatternQuery{Category: p.Category, Divisor: p.Divisor})
		if err != nil {
			return nil, err
		}
		return reshapeTimePattern(series), nil
	},
	ReportPatternView: func(ctx context.Context, c ReportClient, p ReportParams) (Bucket, error) {
		series, err := c.PatternView(ctx, ItemQuery{Category: p.Category, Item: p.Item})
		if err != nil {
			return nil, err
		}
		return reshapePatternView(series), nil
	},
	ReportPatternBuy: func(ctx context.Context, c ReportClient, p ReportParams) (Bucket, error) {
		series, err := c.PatternBuy(ctx, ItemQuery{Category: p.Category, Item: p.Item})
		if err != nil {
			return nil, err
		}
		return reshapePatternBuy(series), nil
	},
}
