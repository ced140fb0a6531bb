package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	dashboard "github.com/goliatone/go-logdash/components/dashboard"
)

// The backend emits mappings whose key order carries meaning (countries,
// categories, ips). encoding/json maps lose that order, so objects are read
// token by token.

// flexNumber accepts numbers, numeric strings and null (zero).
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	v, err := parseNumber(data)
	if err != nil {
		return err
	}
	*n = flexNumber(v)
	return nil
}

// flexCount is a flexNumber truncated to an integer count.
type flexCount int64

func (n *flexCount) UnmarshalJSON(data []byte) error {
	v, err := parseNumber(data)
	if err != nil {
		return err
	}
	*n = flexCount(int64(v))
	return nil
}

func parseNumber(raw []byte) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: not a number: %s", ErrInvalidResponse, raw)
	}
	return v, nil
}

func parseCount(raw []byte) (int64, error) {
	v, err := parseNumber(raw)
	return int64(v), err
}

// decodeCountSeries reads a JSON object of key -> count in document order.
func decodeCountSeries(data []byte) (dashboard.CountSeries, error) {
	series := dashboard.CountSeries{}
	err := walkObject(data, func(key string, raw json.RawMessage) error {
		count, err := parseCount(raw)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		series = append(series, dashboard.KeyCount{Key: key, Count: count})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return series, nil
}

// decodeTaxonomy reads category -> [items] in document order.
func decodeTaxonomy(data []byte) (dashboard.Taxonomy, error) {
	var categories []dashboard.Category
	err := walkObject(data, func(key string, raw json.RawMessage) error {
		var items []string
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("%w: category %q: %v", ErrInvalidResponse, key, err)
		}
		categories = append(categories, dashboard.Category{Name: key, Items: items})
		return nil
	})
	if err != nil {
		return dashboard.Taxonomy{}, err
	}
	return dashboard.NewTaxonomy(categories...), nil
}

// decodeCarts accepts a list of cart ids as numbers, numeric strings,
// {"cart_id": n} objects or single element rows.
func decodeCarts(data []byte) ([]dashboard.CartRecord, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: carts: %v", ErrInvalidResponse, err)
	}
	out := make([]dashboard.CartRecord, 0, len(rows))
	for i, row := range rows {
		id, err := cartID(bytes.TrimSpace(row))
		if err != nil {
			return nil, fmt.Errorf("cart %d: %w", i, err)
		}
		out = append(out, dashboard.CartRecord{CartID: id})
	}
	return out, nil
}

func cartID(row []byte) (int64, error) {
	if len(row) == 0 {
		return 0, fmt.Errorf("%w: empty cart row", ErrInvalidResponse)
	}
	switch row[0] {
	case '{':
		var obj struct {
			CartID *flexCount `json:"cart_id"`
		}
		if err := json.Unmarshal(row, &obj); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		if obj.CartID == nil {
			return 0, fmt.Errorf("%w: cart row without cart_id", ErrInvalidResponse)
		}
		return int64(*obj.CartID), nil
	case '[':
		var cols []json.RawMessage
		if err := json.Unmarshal(row, &cols); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		if len(cols) == 0 {
			return 0, fmt.Errorf("%w: empty cart row", ErrInvalidResponse)
		}
		return parseCount(cols[0])
	default:
		return parseCount(row)
	}
}

func walkObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: unexpected token %v", ErrInvalidResponse, tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: value of %q: %v", ErrInvalidResponse, key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrInvalidResponse, want, tok)
	}
	return nil
}
