package validation

import (
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderdesk/internal/orders"
	"github.com/imrishuroy/go-orderdesk/internal/query"
)

var bucketQueryKeys = map[string]struct{}{
	"q":             {},
	"min_amount":    {},
	"max_amount":    {},
	"status":        {},
	"customer_name": {},
	"from":          {},
	"to":            {},
	"page":          {},
	"page_size":     {},
}

// ToRequest converts the bound query string into a query request. Missing
// paging values fall back to page 1 and defaultPageSize.
func (q BucketQuery) ToRequest(defaultPageSize, maxPageSize int) (query.Request, error) {
	req := query.Request{SearchText: q.Q, Page: 1, PageSize: defaultPageSize}
	if q.Page != nil {
		req.Page = *q.Page
	}
	if q.PageSize != nil {
		req.PageSize = *q.PageSize
	}
	if maxPageSize > 0 && req.PageSize > maxPageSize {
		return query.Request{}, orders.InvalidArgumentf("page size %d exceeds the limit of %d", req.PageSize, maxPageSize)
	}

	var err error
	if req.Filters.MinAmount, err = parseAmount("min_amount", q.MinAmount); err != nil {
		return query.Request{}, err
	}
	if req.Filters.MaxAmount, err = parseAmount("max_amount", q.MaxAmount); err != nil {
		return query.Request{}, err
	}
	if q.Status != "" {
		st, err := orders.ParseStatus(q.Status)
		if err != nil {
			return query.Request{}, err
		}
		req.Filters.Status = &st
	}
	if q.CustomerName != "" {
		name := q.CustomerName
		req.Filters.CustomerNameContains = &name
	}
	if q.From != nil || q.To != nil {
		req.Filters.DateRange = &query.DateRange{Start: q.From, End: q.To}
	}
	return req, req.Validate()
}

func parseAmount(name, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, orders.InvalidArgumentf("%s: %q is not a number", name, raw)
	}
	return &d, nil
}
