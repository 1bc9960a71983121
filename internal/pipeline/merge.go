package pipeline

import (
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/extract"
	"github.com/joseph-ayodele/orders-intake/internal/matching"
)

// merge combines the customer and field results into one record per order line.
// Order-level failures are attached to every line; line failures to their own line.
func merge(entry entity.Entry, orderNo int, cust extract.CustomerResult, f *fields, catalog *matching.Catalog) []entity.OrderRecord {
	entryID := entry.EntryID
	if f.cpsdErr == nil && f.cpsd.EntryID != "" {
		entryID = f.cpsd.EntryID
	}

	var shared []entity.FailureContext
	if cust.Failure != nil {
		shared = append(shared, *cust.Failure)
	}
	for _, e := range []struct {
		field, subagent string
		err             error
	}{
		{"reference_no", "reference", f.refErr},
		{"valve", "valve", f.valveErr},
		{"delivery_address", "address", f.addrErr},
		{"cpsd", "cpsd", f.cpsdErr},
		{"option_sku", "options", f.optsErr},
	} {
		if e.err != nil {
			shared = append(shared, callFailure(e.field, e.subagent, e.err))
		}
	}
	if f.cpsdErr == nil && f.cpsd.Failure != nil {
		shared = append(shared, *f.cpsd.Failure)
	}

	lines := f.sku.Lines
	if len(lines) == 0 {
		switch {
		case f.skuErr != nil:
			shared = append(shared, callFailure("sku", "sku", f.skuErr))
		case f.sku.Failure != nil:
			shared = append(shared, *f.sku.Failure)
		}
		r := placeholder(entity.Entry{EntryID: entryID}, orderNo, shared...)
		r.CustomerID, r.CustomerName = cust.ID, cust.Name
		return []entity.OrderRecord{r}
	}

	n := len(lines)
	refs := assignReferences(f.refs, n)
	dates := assignDates(f.cpsd.Dates, n)
	valves := extract.FitValves(f.valves, n)

	var optionSKU string
	if f.optsErr == nil && f.opts.HasOptions {
		sku, fail := extract.ResolveOption(catalog, f.opts, firstFamily(lines))
		optionSKU = sku
		if fail != nil {
			shared = append(shared, *fail)
		}
	}

	records := make([]entity.OrderRecord, n)
	for i, line := range lines {
		r := entity.OrderRecord{
			OrderNo:         orderNo,
			LineNo:          i + 1,
			CustomerID:      cust.ID,
			CustomerName:    cust.Name,
			SKU:             line.SKU,
			Quantity:        line.Quantity,
			ReferenceNo:     refs[i],
			Valve:           valves[i],
			DeliveryAddress: f.addr.Address,
			CPSD:            dates[i],
			EntryID:         entryID,
			TelephoneNumber: f.addr.Telephone,
			ContactName:     f.addr.Contact,
		}
		if optionSKU != "" {
			sku, qty := optionSKU, f.opts.Quantity
			r.OptionSKU, r.OptionQty = &sku, &qty
		}
		for _, fc := range shared {
			r.Failures = append(r.Failures, locate(fc, r))
		}
		if line.Failure != nil {
			r.Failures = append(r.Failures, locate(*line.Failure, r))
		}
		records[i] = r
	}
	return records
}

// assignReferences pairs references with lines one to one, applies a single
// reference to every line, or joins several references on a single line.
// Pairing counts every slot the model returned, so a nil slot stays nil on its
// line and a count mismatch leaves every line without a reference.
func assignReferences(refs []*string, n int) []*string {
	out := make([]*string, n)
	switch {
	case len(refs) == 0:
	case len(refs) == n:
		copy(out, refs)
	case len(refs) == 1:
		for i := range out {
			out[i] = refs[0]
		}
	case n == 1:
		var parts []string
		for _, r := range refs {
			if r != nil {
				parts = append(parts, *r)
			}
		}
		if len(parts) > 0 {
			joined := strings.Join(parts, ", ")
			out[0] = &joined
		}
	}
	return out
}

// assignDates pairs dates with lines one to one or applies a single date to
// every line. Like assignReferences it counts nil slots.
func assignDates(dates []*string, n int) []*string {
	out := make([]*string, n)
	switch {
	case len(dates) == 0:
	case len(dates) == n:
		copy(out, dates)
	case len(dates) == 1:
		for i := range out {
			out[i] = dates[0]
		}
	}
	return out
}

func firstFamily(lines []extract.Line) string {
	for _, l := range lines {
		if l.Family.Desc != "" {
			return l.Family.Desc
		}
	}
	return ""
}
