// Package query applies search text, structured filters and pagination to an
// ordered sequence of orders. Every function here is pure: the input slice is
// never modified and its ordering is preserved.
package query

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderdesk/internal/orders"
)

// DateRange bounds CreatedAt. Both ends are inclusive and either may be open.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Filters narrows a result with AND semantics. A nil field imposes no constraint.
type Filters struct {
	MinAmount            *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount            *decimal.Decimal `json:"max_amount,omitempty"`
	Status               *orders.Status   `json:"status,omitempty"`
	CustomerNameContains *string          `json:"customer_name_contains,omitempty"`
	DateRange            *DateRange       `json:"date_range,omitempty"`
}

// Request is one query over a sequence of orders.
type Request struct {
	SearchText string
	Filters    Filters
	Page       int
	PageSize   int
}

// Result is one page of matches.
type Result struct {
	Items        []orders.Order `json:"items"`
	TotalMatched int            `json:"total_matched"`
	TotalPages   int            `json:"total_pages"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
}

// Validate reports malformed pagination or filter input as InvalidArgument.
func (r Request) Validate() error {
	if r.PageSize <= 0 {
		return orders.InvalidArgumentf("page size must be positive, got %d", r.PageSize)
	}
	if r.Page < 1 {
		return orders.InvalidArgumentf("page must be at least 1, got %d", r.Page)
	}
	return r.Filters.Validate()
}

// Validate checks the filter for contradictory or out-of-domain values.
func (f Filters) Validate() error {
	if f.MinAmount != nil && f.MinAmount.IsNegative() {
		return orders.InvalidArgumentf("min amount cannot be negative")
	}
	if f.MaxAmount != nil && f.MaxAmount.IsNegative() {
		return orders.InvalidArgumentf("max amount cannot be negative")
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return orders.InvalidArgumentf("min amount %s exceeds max amount %s", f.MinAmount, f.MaxAmount)
	}
	if f.Status != nil {
		st, err := orders.ParseStatus(string(*f.Status))
		if err != nil {
			return err
		}
		if st != *f.Status {
			return orders.InvalidArgumentf("status %q must be spelled %q", *f.Status, st)
		}
	}
	if dr := f.DateRange; dr != nil && dr.Start != nil && dr.End != nil && dr.Start.After(*dr.End) {
		return orders.InvalidArgumentf("date range start %s is after end %s",
			dr.Start.Format(time.RFC3339), dr.End.Format(time.RFC3339))
	}
	return nil
}

// Run filters records and cuts out the requested page. A page past the end
// yields no items but still reports the correct totals.
func Run(records []orders.Order, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	matched := Filter(records, req.SearchText, req.Filters)
	return Paginate(matched, req.Page, req.PageSize), nil
}

// Filter keeps the records that satisfy the search text and every filter,
// in their original order.
func Filter(records []orders.Order, searchText string, f Filters) []orders.Order {
	preds := predicates(searchText, f)
	out := make([]orders.Order, 0, len(records))
	for i := range records {
		if matchesAll(&records[i], preds) {
			out = append(out, records[i])
		}
	}
	return out
}

// Paginate slices matched into the 1-indexed page. Page and pageSize are
// assumed validated.
func Paginate(matched []orders.Order, page, pageSize int) Result {
	total := len(matched)
	totalPages := (total + pageSize - 1) / pageSize

	res := Result{
		Items:        []orders.Order{},
		TotalMatched: total,
		TotalPages:   totalPages,
		Page:         clamp(page, 1, max(1, totalPages)),
		PageSize:     pageSize,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return res
	}
	end := min(start+pageSize, total)
	res.Items = append(res.Items, matched[start:end]...)
	return res
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

type predicate func(o *orders.Order) bool

func matchesAll(o *orders.Order, preds []predicate) bool {
	for _, p := range preds {
		if !p(o) {
			return false
		}
	}
	return true
}

func predicates(searchText string, f Filters) []predicate {
	var preds []predicate

	if needle := strings.TrimSpace(searchText); needle != "" {
		needle = strings.ToLower(needle)
		preds = append(preds, func(o *orders.Order) bool {
			return containsFold(o.Customer.Name, needle) || containsFold(o.ID, needle)
		})
	}
	if f.MinAmount != nil {
		minAmount := *f.MinAmount
		preds = append(preds, func(o *orders.Order) bool {
			return o.Total.GreaterThanOrEqual(minAmount)
		})
	}
	if f.MaxAmount != nil {
		maxAmount := *f.MaxAmount
		preds = append(preds, func(o *orders.Order) bool {
			return o.Total.LessThanOrEqual(maxAmount)
		})
	}
	if f.Status != nil {
		status := *f.Status
		preds = append(preds, func(o *orders.Order) bool {
			return o.Status == status
		})
	}
	if f.CustomerNameContains != nil && *f.CustomerNameContains != "" {
		needle := strings.ToLower(*f.CustomerNameContains)
		preds = append(preds, func(o *orders.Order) bool {
			return containsFold(o.Customer.Name, needle)
		})
	}
	if dr := f.DateRange; dr != nil {
		if dr.Start != nil {
			start := *dr.Start
			preds = append(preds, func(o *orders.Order) bool {
				return !o.CreatedAt.Before(start)
			})
		}
		if dr.End != nil {
			end := *dr.End
			preds = append(preds, func(o *orders.Order) bool {
				return !o.CreatedAt.After(end)
			})
		}
	}
	return preds
}

// containsFold reports whether lowerNeedle occurs in s, ignoring case.
func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}
