package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/xuri/excelize/v2"
)

const commissionSheet = "Commissions"

// CommissionWorkbook renders a commission report as an .xlsx file.
func CommissionWorkbook(report domain.CommissionReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), commissionSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	cells := [][]interface{}{
		{"Agency", report.AgencyID},
		{"From", report.From.Format("2006-01-02")},
		{"To", report.To.Format("2006-01-02")},
		{},
		{"Currency", "Sales", "Commission"},
	}
	total := 0
	for _, c := range domain.TillCurrencies {
		if !c.IsForeign() {
			continue
		}
		commission, _ := report.Commissions[c].Float64()
		cells = append(cells, []interface{}{string(c), report.SalesCount[c], commission})
		total += report.SalesCount[c]
	}
	cells = append(cells, []interface{}{"Total sales", total})

	for i, row := range cells {
		if len(row) == 0 {
			continue
		}
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(commissionSheet, ref, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
