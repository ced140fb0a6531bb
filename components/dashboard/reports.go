package dashboard

import (
	"fmt"
	"strings"

	"github.com/ettle/strcase"
)

// ReportKind identifies one of the dashboard reports.
type ReportKind string

const (
	ReportServerLoad        ReportKind = "server_load"
	ReportActionsPerCountry ReportKind = "actions_per_country"
	ReportUnpaidCarts       ReportKind = "unpaid_carts"
	ReportRepeatPurchases   ReportKind = "repeat_purchases"
	ReportTimePattern       ReportKind = "time_pattern"
	ReportPatternView       ReportKind = "pattern_view"
	ReportPatternBuy        ReportKind = "pattern_buy"
)

var reportKinds = []ReportKind{
	ReportServerLoad,
	ReportActionsPerCountry,
	ReportUnpaidCarts,
	ReportRepeatPurchases,
	ReportTimePattern,
	ReportPatternView,
	ReportPatternBuy,
}

// ReportKinds lists every report in dashboard order.
func ReportKinds() []ReportKind {
	return append([]ReportKind(nil), reportKinds...)
}

// ParseReportKind accepts snake, kebab or camel spellings ("pattern-view", "patternView").
func ParseReportKind(raw string) (ReportKind, error) {
	normalized := ReportKind(strcase.ToSnake(strings.TrimSpace(raw)))
	for _, kind := range reportKinds {
		if kind == normalized {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReport, raw)
}

// Slug is the kebab-case spelling used by the CLI and URLs.
func (k ReportKind) Slug() string {
	return strcase.ToKebab(string(k))
}

// Title is the human label shown above the report.
func (k ReportKind) Title() string {
	switch k {
	case ReportServerLoad:
		return "Server load per hour"
	case ReportActionsPerCountry:
		return "Actions per country"
	case ReportUnpaidCarts:
		return "Unpaid carts"
	case ReportRepeatPurchases:
		return "Repeat purchases"
	case ReportTimePattern:
		return "Time of day purchase pattern"
	case ReportPatternView:
		return "Item views per country"
	case ReportPatternBuy:
		return "Categories bought together"
	default:
		return string(k)
	}
}

// DateGated reports take a date range.
func (k ReportKind) DateGated() bool {
	return k == ReportUnpaidCarts || k == ReportRepeatPurchases
}

// ItemGated reports need a category and an item.
func (k ReportKind) ItemGated() bool {
	return k == ReportPatternView || k == ReportPatternBuy
}

// ReportParams are the inputs a fetch was issued with.
type ReportParams struct {
	Dates    DateRange `json:"dates,omitempty" yaml:"dates,omitempty"`
	Category string    `json:"category,omitempty" yaml:"category,omitempty"`
	Item     string    `json:"item,omitempty" yaml:"item,omitempty"`
	K        int       `json:"k,omitempty" yaml:"k,omitempty"`
	Divisor  int       `json:"divisor,omitempty" yaml:"divisor,omitempty"`
}

// Bucket is the result container of one report. Each report has its own
// concrete type so fields cannot leak between reports.
type Bucket interface {
	Kind() ReportKind
	IsLoaded() bool
}

// ServerLoadBucket passes the server payload through.
type ServerLoadBucket struct {
	Loaded     bool            `json:"loaded" yaml:"loaded"`
	Average    float64         `json:"avg" yaml:"avg"`
	Statistics []ServerLoadRow `json:"statistics" yaml:"statistics"`
}

// ActionsPerCountryBucket holds parallel country/action sequences.
type ActionsPerCountryBucket struct {
	Loaded  bool     `json:"loaded" yaml:"loaded"`
	Country []string `json:"country" yaml:"country"`
	Actions []int64  `json:"actions" yaml:"actions"`
}

// UnpaidCartsBucket holds the abandoned carts of the date range.
type UnpaidCartsBucket struct {
	Loaded bool         `json:"loaded" yaml:"loaded"`
	List   []CartRecord `json:"list" yaml:"list"`
}

// RepeatPurchasesBucket holds repeat purchase counts per client ip.
type RepeatPurchasesBucket struct {
	Loaded      bool     `json:"loaded" yaml:"loaded"`
	IPList      []string `json:"ip_list" yaml:"ip_list"`
	Amount      []int64  `json:"amount" yaml:"amount"`
	TotalAmount int64    `json:"total_amount" yaml:"total_amount"`
}

// TimePatternBucket holds per-slot purchase counts; slot keys are dropped.
type TimePatternBucket struct {
	Loaded bool    `json:"loaded" yaml:"loaded"`
	Amount []int64 `json:"amount" yaml:"amount"`
}

// PatternViewBucket holds views of one item per country.
type PatternViewBucket struct {
	Loaded  bool     `json:"loaded" yaml:"loaded"`
	Country []string `json:"country" yaml:"country"`
	Actions []int64  `json:"actions" yaml:"actions"`
}

// PatternBuyBucket holds categories purchased alongside one item.
type PatternBuyBucket struct {
	Loaded    bool     `json:"loaded" yaml:"loaded"`
	Category  []string `json:"category" yaml:"category"`
	Purchases []int64  `json:"purchases" yaml:"purchases"`
}

func (ServerLoadBucket) Kind() ReportKind        { return ReportServerLoad }
func (ActionsPerCountryBucket) Kind() ReportKind { return ReportActionsPerCountry }
func (UnpaidCartsBucket) Kind() ReportKind       { return ReportUnpaidCarts }
func (RepeatPurchasesBucket) Kind() ReportKind   { return ReportRepeatPurchases }
func (TimePatternBucket) Kind() ReportKind       { return ReportTimePattern }
func (PatternViewBucket) Kind() ReportKind       { return ReportPatternView }
func (PatternBuyBucket) Kind() ReportKind        { return ReportPatternBuy }

func (b ServerLoadBucket) IsLoaded() bool        { return b.Loaded }
func (b ActionsPerCountryBucket) IsLoaded() bool { return b.Loaded }
func (b UnpaidCartsBucket) IsLoaded() bool       { return b.Loaded }
func (b RepeatPurchasesBucket) IsLoaded() bool   { return b.Loaded }
func (b TimePatternBucket) IsLoaded() bool       { return b.Loaded }
func (b PatternViewBucket) IsLoaded() bool       { return b.Loaded }
func (b PatternBuyBucket) IsLoaded() bool        { return b.Loaded }

// EmptyBucket returns the initial, unloaded bucket for kind.
func EmptyBucket(kind ReportKind) Bucket {
	switch kind {
	case ReportServerLoad:
		return ServerLoadBucket{Statistics: []ServerLoadRow{}}
	case ReportActionsPerCountry:
		return ActionsPerCountryBucket{Country: []string{}, Actions: []int64{}}
	case ReportUnpaidCarts:
		return UnpaidCartsBucket{List: []CartRecord{}}
	case ReportRepeatPurchases:
		return RepeatPurchasesBucket{IPList: []string{}, Amount: []int64{}}
	case ReportTimePattern:
		return TimePatternBucket{Amount: []int64{}}
	case ReportPatternView:
		return PatternViewBucket{Country: []string{}, Actions: []int64{}}
	case ReportPatternBuy:
		return PatternBuyBucket{Category: []string{}, Purchases: []int64{}}
	default:
		return nil
	}
}

// ReportState is what the view renders for one report.
type ReportState struct {
	Kind       ReportKind   `json:"kind" yaml:"kind"`
	Bucket     Bucket       `json:"bucket" yaml:"bucket"`
	Params     ReportParams `json:"params" yaml:"params"`
	Pending    bool         `json:"pending" yaml:"pending"`
	Failed     bool         `json:"failed" yaml:"failed"`
	Err        string       `json:"error,omitempty" yaml:"error,omitempty"`
	Generation uint64       `json:"generation" yaml:"generation"`
}

// Loaded reports whether the bucket holds a fetched payload.
func (s ReportState) Loaded() bool {
	return s.Bucket != nil && s.Bucket.IsLoaded()
}
