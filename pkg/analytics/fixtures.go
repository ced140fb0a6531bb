package analytics

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	dashboard "github.com/goliatone/go-logdash/components/dashboard"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/demo.yaml
var demoFixtures []byte

// Fixtures seed the in-memory backend.
type Fixtures struct {
	Dataset           bool
	Filename          string
	Taxonomy          dashboard.Taxonomy
	Overview          dashboard.OverviewMetrics
	ServerLoad        dashboard.ServerLoadReport
	ActionsPerCountry dashboard.CountSeries
	UnpaidCarts       []dashboard.CartRecord
	RepeatedPayments  dashboard.RepeatedPaymentsReport
	// HourlyPurchases maps category -> hour of day ("0".."23") -> purchases.
	HourlyPurchases map[string]dashboard.CountSeries
	// PatternView and PatternBuy map category -> item -> related counts.
	PatternView map[string]map[string]dashboard.CountSeries
	PatternBuy  map[string]map[string]dashboard.CountSeries
}

// DemoFixtures returns the embedded sample dataset.
func DemoFixtures() (Fixtures, error) {
	return LoadFixtures(bytes.NewReader(demoFixtures))
}

// LoadFixtures decodes a YAML fixture document. Mappings keep document order.
func LoadFixtures(r io.Reader) (Fixtures, error) {
	var file fixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return Fixtures{}, nil
		}
		return Fixtures{}, fmt.Errorf("analytics: decode fixtures: %w", err)
	}
	return file.toFixtures(), nil
}

type fixtureFile struct {
	Dataset           bool                             `yaml:"dataset"`
	Filename          string                           `yaml:"filename"`
	Overview          dashboard.OverviewMetrics        `yaml:"overview"`
	Categories        yamlTaxonomy                     `yaml:"categories"`
	ServerLoad        dashboard.ServerLoadReport       `yaml:"server_load"`
	ActionsPerCountry yamlSeries                       `yaml:"actions_per_country"`
	UnpaidCarts       []int64                          `yaml:"unpaid_carts"`
	RepeatedPayments  yamlRepeated                     `yaml:"repeated_payments"`
	HourlyPurchases   map[string]yamlSeries            `yaml:"hourly_purchases"`
	PatternView       map[string]map[string]yamlSeries `yaml:"pattern_view"`
	PatternBuy        map[string]map[string]yamlSeries `yaml:"pattern_buy"`
}

type yamlRepeated struct {
	Amount int64      `yaml:"amount"`
	Data   yamlSeries `yaml:"data"`
}

func (f fixtureFile) toFixtures() Fixtures {
	out := Fixtures{
		Dataset:           f.Dataset,
		Filename:          f.Filename,
		Taxonomy:          dashboard.Taxonomy(f.Categories),
		Overview:          f.Overview,
		ServerLoad:        f.ServerLoad,
		ActionsPerCountry: dashboard.CountSeries(f.ActionsPerCountry),
		RepeatedPayments: dashboard.RepeatedPaymentsReport{
			Amount: f.RepeatedPayments.Amount,
			Data:   dashboard.CountSeries(f.RepeatedPayments.Data),
		},
		HourlyPurchases: make(map[string]dashboard.CountSeries, len(f.HourlyPurchases)),
		PatternView:     nestedSeries(f.PatternView),
		PatternBuy:      nestedSeries(f.PatternBuy),
	}
	for _, id := range f.UnpaidCarts {
		out.UnpaidCarts = append(out.UnpaidCarts, dashboard.CartRecord{CartID: id})
	}
	for category, series := range f.HourlyPurchases {
		out.HourlyPurchases[category] = dashboard.CountSeries(series)
	}
	return out
}

func nestedSeries(in map[string]map[string]yamlSeries) map[string]map[string]dashboard.CountSeries {
	out := make(map[string]map[string]dashboard.CountSeries, len(in))
	for category, items := range in {
		out[category] = make(map[string]dashboard.CountSeries, len(items))
		for item, series := range items {
			out[category][item] = dashboard.CountSeries(series)
		}
	}
	return out
}

// yamlSeries decodes a mapping of key -> count keeping key order.
type yamlSeries dashboard.CountSeries

func (s *yamlSeries) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of counts", node.Line)
	}
	out := make(yamlSeries, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var count int64
		if err := node.Content[i+1].Decode(&count); err != nil {
			return fmt.Errorf("line %d: count for %q: %w", node.Content[i+1].Line, node.Content[i].Value, err)
		}
		out = append(out, dashboard.KeyCount{Key: node.Content[i].Value, Count: count})
	}
	*s = out
	return nil
}

// yamlTaxonomy decodes category -> [items] keeping category order.
type yamlTaxonomy dashboard.Taxonomy

func (t *yamlTaxonomy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of categories", node.Line)
	}
	categories := make([]dashboard.Category, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var items []string
		if err := node.Content[i+1].Decode(&items); err != nil {
			return fmt.Errorf("line %d: items of %q: %w", node.Content[i+1].Line, node.Content[i].Value, err)
		}
		categories = append(categories, dashboard.Category{Name: node.Content[i].Value, Items: items})
	}
	*t = yamlTaxonomy(dashboard.NewTaxonomy(categories...))
	return nil
}
