package receipts

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/zero-paper-user/constants"
	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
)

// TopStoresLimit caps Summary.TopStores.
const TopStoresLimit = 5

// Bucket is a total in one currency.
type Bucket struct {
	Key      string          `json:"key"`
	Currency string          `json:"currency"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

// Summary aggregates a receipt list. Totals are never mixed across
// currencies, so every bucket is keyed by (key, currency).
type Summary struct {
	Count      int      `json:"count"`
	Totals     []Bucket `json:"totals"`
	Averages   []Bucket `json:"averages"`
	ByCategory []Bucket `json:"byCategory"`
	ByMonth    []Bucket `json:"byMonth"`
	TopStores  []Bucket `json:"topStores"`
}

type bucketKey struct{ key, currency string }

type accumulator map[bucketKey]*Bucket

func (a accumulator) add(key, currency string, amount decimal.Decimal) {
	k := bucketKey{key, currency}
	b, ok := a[k]
	if !ok {
		b = &Bucket{Key: key, Currency: currency}
		a[k] = b
	}
	b.Count++
	b.Total = b.Total.Add(amount)
}

func (a accumulator) sorted(less func(x, y Bucket) bool) []Bucket {
	out := make([]Bucket, 0, len(a))
	for _, b := range a {
		out = append(out, *b)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byKey(x, y Bucket) bool {
	if x.Key != y.Key {
		return x.Key < y.Key
	}
	return x.Currency < y.Currency
}

// Summarize computes totals per currency, per category, per month (YYYY-MM)
// and the stores with the highest spend.
func Summarize(list []entity.Receipt) Summary {
	totals := accumulator{}
	categories := accumulator{}
	months := accumulator{}
	stores := accumulator{}

	for _, r := range list {
		cur := strings.ToUpper(strings.TrimSpace(r.Currency))
		if cur == "" {
			cur = constants.DefaultCurrency
		}
		amount := decimal.NewFromFloat(r.Price.Float64())

		totals.add(cur, cur, amount)

		cat, _ := constants.Canonicalize(r.Category)
		categories.add(string(cat), cur, amount)

		month := "unknown"
		if t := r.PurchaseTime(); !t.IsZero() {
			month = t.UTC().Format("2006-01")
		}
		months.add(month, cur, amount)

		store := strings.TrimSpace(r.StoreName)
		if store == "" {
			store = "unknown"
		}
		stores.add(store, cur, amount)
	}

	s := Summary{
		Count:      len(list),
		Totals:     totals.sorted(byKey),
		ByCategory: categories.sorted(byKey),
		ByMonth:    months.sorted(byKey),
	}
	s.Averages = make([]Bucket, 0, len(s.Totals))
	for _, t := range s.Totals {
		avg := t
		avg.Total = t.Total.Div(decimal.NewFromInt(int64(t.Count))).Round(2)
		s.Averages = append(s.Averages, avg)
	}
	top := stores.sorted(func(x, y Bucket) bool {
		if c := x.Total.Cmp(y.Total); c != 0 {
			return c > 0
		}
		return byKey(x, y)
	})
	if len(top) > TopStoresLimit {
		top = top[:TopStoresLimit]
	}
	s.TopStores = top
	return s
}
