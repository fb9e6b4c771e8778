package console

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/meridian-ops/meridian/internal/reconcile"
)

const reconciliationSheet = "Reconciliation"

// WriteReconciliationWorkbook streams the invoice reconciliation worksheet
// as an xlsx document: one row per invoice with its derived tier and
// remaining balance next to the raw backend status.
func WriteReconciliationWorkbook(w io.Writer, views []reconcile.InvoiceView) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(reconciliationSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{"Invoice Number", "Invoice ID", "Total", "Paid", "Remaining", "Tier", "Backend Status"}
	for col, name := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(reconciliationSheet, cell, name); err != nil {
			return err
		}
	}

	for i, v := range views {
		row := i + 2
		values := []any{
			v.InvoiceNumber,
			v.ID,
			v.TotalPayment.InexactFloat64(),
			v.PaidAmount.InexactFloat64(),
			v.Remaining.InexactFloat64(),
			string(v.Tier),
			v.RawStatus,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(reconciliationSheet, cell, value); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
