package validation

import (
	"fmt"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// New returns a configured validator with the decimal helpers and the
// struct-level total check registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// report fields by their wire name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})

	// decimals are validated through their canonical string form
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gte0", decimalGTE0)

	// the claimed total, when sent, must equal the sum of the lines
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})

	return v
}

func decimalGTE0(fl validatorv10.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative()
}

// createOrderStructValidation verifies the aggregated total of items equals TotalAmount.
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)
	if req.TotalAmount == nil {
		return
	}

	sum := decimal.Zero
	for _, it := range req.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if !sum.Equal(*req.TotalAmount) {
		sl.ReportError(req.TotalAmount, "total_amount", "TotalAmount", "amount_match_items",
			fmt.Sprintf("items sum %s != total %s", sum, req.TotalAmount))
	}
}
