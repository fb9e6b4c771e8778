// Package transfer merges client-side transfer rows into aggregated line
// items and checks them against available stock before anything is
// submitted to the backend.
package transfer

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNoRows indicates a merge was requested with nothing to merge.
var ErrNoRows = errors.New("transfer: no rows to merge")

// Row is a single transfer line as entered on screen. Rows are ephemeral:
// created when the user adds a line, merged at save time, discarded after
// a successful submission.
type Row struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Units     int64           `json:"units"`
	Price     decimal.Decimal `json:"price"`
}

// MergedLine is the aggregated quantity entry for one product.
type MergedLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Units     int64           `json:"units"`
	Price     decimal.Decimal `json:"price"`
}

// StockError reports a merged quantity exceeding available stock.
type StockError struct {
	ProductID string
	Name      string
	Requested int64
	Available int64
}

func (e *StockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

// Merge groups rows by product, summing units. Name and price stick with
// the first-seen row per product; only the quantity sum is order
// insensitive. First-appearance order is preserved.
func Merge(rows []Row) []MergedLine {
	index := make(map[string]int, len(rows))
	out := make([]MergedLine, 0, len(rows))
	for _, row := range rows {
		if i, ok := index[row.ProductID]; ok {
			out[i].Units += row.Units
			continue
		}
		index[row.ProductID] = len(out)
		out = append(out, MergedLine{
			ProductID: row.ProductID,
			Name:      row.Name,
			Units:     row.Units,
			Price:     row.Price,
		})
	}
	return out
}

// Index re-keys merged lines by product ID.
func Index(lines []MergedLine) map[string]MergedLine {
	out := make(map[string]MergedLine, len(lines))
	for _, l := range lines {
		out[l.ProductID] = l
	}
	return out
}

// ValidateStock rejects the whole merge when any product's summed units
// exceed the available quantity at the source location. Products missing
// from the availability map count as zero stock.
func ValidateStock(lines []MergedLine, available map[string]int64) error {
	for _, l := range lines {
		have := available[l.ProductID]
		if l.Units > have {
			return &StockError{
				ProductID: l.ProductID,
				Name:      l.Name,
				Requested: l.Units,
				Available: have,
			}
		}
	}
	return nil
}

// MergeAndValidate is the pre-flight check run before a transfer
// submission call is made.
func MergeAndValidate(rows []Row, available map[string]int64) ([]MergedLine, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	lines := Merge(rows)
	if err := ValidateStock(lines, available); err != nil {
		return nil, err
	}
	return lines, nil
}
