// Package export renders extracted orders as an XLSX workbook and failed orders
// as a markdown summary for reviewers.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/repository"
)

const (
	OrdersSheet   = "Orders"
	FailuresSheet = "Failures"
)

// OrderColumns is the column order of the Orders sheet.
var OrderColumns = []string{
	"orderno", "customerid", "customer_name", "sku", "quantity",
	"reference_no", "valve", "delivery_address", "cpsd", "entry_id",
	"option_sku", "option_qty", "telephone_number", "contact_name",
}

// Service is a small façade over the order repository that produces XLSX bytes.
type Service struct {
	orders repository.OrderRepository
	logger *slog.Logger
}

func NewService(orders repository.OrderRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orders: orders, logger: logger}
}

// JobXLSX exports the approved orders stored for a job.
func (s *Service) JobXLSX(ctx context.Context, jobID uuid.UUID) ([]byte, error) {
	recs, err := s.orders.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	buf, err := s.OrdersXLSX(recs, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.job.ok", "job_id", jobID.String(), "rows", len(recs))
	return buf, nil
}

// OrdersXLSX returns a workbook with succeeded records on the Orders sheet and
// failed records, with their failure messages, on the Failures sheet.
func (s *Service) OrdersXLSX(succeeded, failed []entity.OrderRecord) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet becomes Orders
	if err := f.SetSheetName(f.GetSheetName(0), OrdersSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(FailuresSheet); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(OrdersSheet)
	f.SetActiveSheet(idx)

	if err := writeSheet(f, OrdersSheet, OrderColumns, succeeded, false); err != nil {
		return nil, err
	}
	if err := writeSheet(f, FailuresSheet, append(append([]string{}, OrderColumns...), "failures"), failed, true); err != nil {
		return nil, err
	}

	for _, sheet := range []string{OrdersSheet, FailuresSheet} {
		_ = f.SetColWidth(sheet, "C", "C", 36) // customer name
		_ = f.SetColWidth(sheet, "D", "D", 16) // sku
		_ = f.SetColWidth(sheet, "H", "H", 48) // address
	}
	_ = f.SetColWidth(FailuresSheet, "O", "O", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"succeeded", len(succeeded),
		"failed", len(failed),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, recs []entity.OrderRecord, withFailures bool) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for i, r := range recs {
		row := []any{
			r.OrderNo, r.CustomerID, r.CustomerName, r.SKU, r.Quantity,
			str(r.ReferenceNo), string(r.Valve), str(r.DeliveryAddress), str(r.CPSD), r.EntryID,
			str(r.OptionSKU), num(r.OptionQty), str(r.TelephoneNumber), str(r.ContactName),
		}
		if withFailures {
			msgs := make([]string, 0, len(r.Failures))
			for _, fc := range r.Failures {
				msgs = append(msgs, fc.String())
			}
			row = append(row, strings.Join(msgs, "; "))
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		// SKUs are written as strings so leading zeros survive
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func str(p *string) any {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}
