// Package receipts holds the receipt rules the gateway and the CLI share:
// list filtering and ordering, price and date coercion, create payload
// validation, and the analytics summary.
package receipts

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/joseph-ayodele/zero-paper-user/constants"
	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
)

// SortKey orders a receipt list. Both keys sort descending.
type SortKey string

const (
	SortByDate  SortKey = "date"
	SortByPrice SortKey = "price"
)

func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByDate:
		return SortByDate, nil
	case SortByPrice:
		return SortByPrice, nil
	}
	return "", fmt.Errorf("unknown sort %q (want date or price)", s)
}

// Filter keeps receipts whose category contains category, ignoring case.
// An empty filter or "all" keeps everything. The input is not modified.
func Filter(list []entity.Receipt, category string) []entity.Receipt {
	needle := strings.ToLower(strings.TrimSpace(category))
	out := make([]entity.Receipt, 0, len(list))
	for _, r := range list {
		if needle == "" || needle == constants.FilterAll || strings.Contains(strings.ToLower(r.Category), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Sort returns a copy of list ordered newest first or most expensive first.
// Ties keep their original order.
func Sort(list []entity.Receipt, key SortKey) []entity.Receipt {
	out := slices.Clone(list)
	switch key {
	case SortByPrice:
		slices.SortStableFunc(out, func(a, b entity.Receipt) int {
			return cmp.Compare(b.Price, a.Price)
		})
	default:
		slices.SortStableFunc(out, func(a, b entity.Receipt) int {
			return b.PurchaseTime().Compare(a.PurchaseTime())
		})
	}
	return out
}
