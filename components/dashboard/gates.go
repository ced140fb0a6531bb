package dashboard

import (
	"fmt"
	"slices"
	"strings"
)

const hoursPerDay = 24

var granularityOptions = []int{1, 2, 3, 4, 6, 8, 12, 24}

// GranularityOptions lists the k values the view offers. Each divides 24.
func GranularityOptions() []int {
	return append([]int(nil), granularityOptions...)
}

// SamplingDivisor converts the number of daily buckets k into the hour
// divisor sent to the backend (24 / k).
func SamplingDivisor(k int) (int, error) {
	if !slices.Contains(granularityOptions, k) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidGranularity, k)
	}
	return hoursPerDay / k, nil
}

// Inputs is the user controlled state every gate is computed from.
type Inputs struct {
	CategoryIndex int       `json:"category_index" yaml:"category_index"`
	Item          string    `json:"item" yaml:"item"`
	UnpaidDates   DateRange `json:"unpaid_dates" yaml:"unpaid_dates"`
	RepeatDates   DateRange `json:"repeat_dates" yaml:"repeat_dates"`
	Granularity   int       `json:"granularity" yaml:"granularity"`
}

// NewInputs returns inputs with nothing selected.
func NewInputs() Inputs {
	return Inputs{CategoryIndex: -1}
}

// Dates returns the range bound to a date gated report.
func (in Inputs) Dates(kind ReportKind) (DateRange, bool) {
	switch kind {
	case ReportUnpaidCarts:
		return in.UnpaidDates, true
	case ReportRepeatPurchases:
		return in.RepeatDates, true
	default:
		return DateRange{}, false
	}
}

// Gates is the enablement of every control derived from Inputs.
type Gates struct {
	ItemControl bool                `json:"item_control" yaml:"item_control"`
	Reports     map[ReportKind]bool `json:"reports" yaml:"reports"`
}

// Enabled reports whether the trigger for kind may fire.
func (g Gates) Enabled(kind ReportKind) bool {
	return g.Reports[kind]
}

// EvaluateGates computes every gate from scratch. It holds no state, so edits
// to several fields in a row can never leave a stale enablement behind.
func EvaluateGates(tax Taxonomy, in Inputs) Gates {
	_, categorySelected := tax.Category(in.CategoryIndex)
	gates := Gates{
		ItemControl: categorySelected,
		Reports:     make(map[ReportKind]bool, len(reportKinds)),
	}
	for _, kind := range reportKinds {
		gates.Reports[kind] = evaluateReportGate(kind, tax, in)
	}
	return gates
}

func evaluateReportGate(kind ReportKind, tax Taxonomy, in Inputs) bool {
	switch {
	case kind.DateGated():
		return EvaluateDateRangeGate(kind, in)
	case kind == ReportTimePattern:
		return EvaluateGranularityGate(tax, in)
	case kind.ItemGated():
		return evaluateItemGate(tax, in)
	default:
		return true
	}
}

// EvaluateDateRangeGate is open iff both bounds bound to kind are non-empty.
func EvaluateDateRangeGate(kind ReportKind, in Inputs) bool {
	dates, ok := in.Dates(kind)
	if !ok {
		return false
	}
	return strings.TrimSpace(dates.From) != "" && strings.TrimSpace(dates.To) != ""
}

// EvaluateGranularityGate is open iff an offered granularity is selected and a
// category is selected.
func EvaluateGranularityGate(tax Taxonomy, in Inputs) bool {
	if !slices.Contains(granularityOptions, in.Granularity) {
		return false
	}
	_, ok := tax.Category(in.CategoryIndex)
	return ok
}

func evaluateItemGate(tax Taxonomy, in Inputs) bool {
	return in.Item != "" && tax.Contains(in.CategoryIndex, in.Item)
}

// paramsFor assembles the request parameters for kind, refusing when the gate is closed.
func paramsFor(kind ReportKind, tax Taxonomy, in Inputs) (ReportParams, error) {
	if !evaluateReportGate(kind, tax, in) {
		return ReportParams{}, fmt.Errorf("%w: %s", ErrGateClosed, kind)
	}
	var params ReportParams
	switch {
	case kind.DateGated():
		dates, _ := in.Dates(kind)
		params.Dates = DateRange{From: strings.TrimSpace(dates.From), To: strings.TrimSpace(dates.To)}
	case kind == ReportTimePattern:
		cat, _ := tax.Category(in.CategoryIndex)
		divisor, err := SamplingDivisor(in.Granularity)
		if err != nil {
			return ReportParams{}, err
		}
		params.Category = cat.Name
		params.K = in.Granularity
		params.Divisor = divisor
	case kind.ItemGated():
		cat, _ := tax.Category(in.CategoryIndex)
		params.Category = cat.Name
		params.Item = in.Item
	}
	return params, nil
}

// affectedBy lists the reports whose parameters depend on a changed input.
func affectedBy(scope string) []ReportKind {
	switch scope {
	case "category":
		return []ReportKind{ReportTimePattern, ReportPatternView, ReportPatternBuy}
	case "item":
		return []ReportKind{ReportPatternView, ReportPatternBuy}
	case "granularity":
		return []ReportKind{ReportTimePattern}
	default:
		return nil
	}
}
