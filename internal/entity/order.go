package entity

import (
	"fmt"

	"github.com/joseph-ayodele/orders-intake/constants"
)

// OrderRecord is one order line ready for review and persistence.
type OrderRecord struct {
	OrderNo         int              `json:"order_no"`
	LineNo          int              `json:"line_no"`
	CustomerID      string           `json:"customer_id"`
	CustomerName    string           `json:"customer_name,omitempty"`
	SKU             string           `json:"sku"`
	Quantity        int              `json:"quantity"`
	ReferenceNo     *string          `json:"reference_no,omitempty"`
	Valve           constants.Valve  `json:"valve"`
	DeliveryAddress *string          `json:"delivery_address,omitempty"`
	CPSD            *string          `json:"cpsd,omitempty"`
	EntryID         string           `json:"entry_id,omitempty"`
	OptionSKU       *string          `json:"option_sku,omitempty"`
	OptionQty       *float64         `json:"option_qty,omitempty"`
	TelephoneNumber *string          `json:"telephone_number,omitempty"`
	ContactName     *string          `json:"contact_name,omitempty"`
	Failures        []FailureContext `json:"failures,omitempty"`
}

// Key identifies a record within a batch; review edits are matched on it.
func (r OrderRecord) Key() string {
	return fmt.Sprintf("%d-%d", r.OrderNo, r.LineNo)
}
