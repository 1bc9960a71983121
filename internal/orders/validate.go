// Package orders holds the record validation shared by extraction and review.
package orders

import (
	"time"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
)

// ValidationSubagent tags failure contexts produced by Validate, so a
// re-validation replaces them instead of stacking duplicates.
const ValidationSubagent = "validation"

// Validate applies the field rules to one record.
func Validate(r entity.OrderRecord) []common.ValidationError {
	v := common.NewValidator()
	v.Field("customer_id", r.CustomerID, common.Required)
	v.Field("sku", r.SKU, common.Required, common.ExactLength(constants.SKULength))
	v.Field("quantity", r.Quantity, common.PositiveInt)
	v.Field("valve", string(r.Valve), common.OneOf(constants.ValveValues()...))
	v.Field("cpsd", r.CPSD, common.CalendarDate(time.DateOnly))
	v.Field("option_qty", r.OptionQty, common.PositiveNumber)
	return v.Errors()
}

// Partition validates every record. Records with at least one error go to
// invalid with a failure context per error; the rest go to valid. Input order
// is kept in both outputs.
func Partition(records []entity.OrderRecord) (valid, invalid []entity.OrderRecord) {
	for _, r := range records {
		r.Failures = withoutValidation(r.Failures)
		errs := Validate(r)
		if len(errs) == 0 {
			valid = append(valid, r)
			continue
		}
		for _, e := range errs {
			r.Failures = append(r.Failures, entity.FailureContext{
				Kind:     entity.FailureInvalidFieldFormat,
				Field:    e.Field,
				Subagent: ValidationSubagent,
				Reason:   e.Message,
				Message:  e.Field + " " + e.Message,
				OrderNo:  r.OrderNo,
				LineNo:   r.LineNo,
				EntryID:  r.EntryID,
			})
		}
		invalid = append(invalid, r)
	}
	return valid, invalid
}

func withoutValidation(in []entity.FailureContext) []entity.FailureContext {
	var out []entity.FailureContext
	for _, f := range in {
		if f.Subagent != ValidationSubagent {
			out = append(out, f)
		}
	}
	return out
}
