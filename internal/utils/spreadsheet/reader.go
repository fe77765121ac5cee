package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are not .csv, .xlsx or .xls.
var ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv, .xlsx or .xls")

// ReadRows returns the cells of the first sheet, picking the parser from the file extension.
func ReadRows(filename string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(data)
	case ".xlsx":
		return parseXLSX(data)
	case ".xls":
		return parseXLS(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

func parseXLSX(data []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xl.Close()

	rows, err := xl.GetRows(xl.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read xlsx rows: %w", err)
	}
	return rows, nil
}

func parseXLS(data []byte) ([][]string, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("xls has no sheet")
	}

	rows := [][]string{}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, []string{})
			continue
		}
		cells := []string{}
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cardColumns maps accepted header spellings to import fields.
var cardColumns = map[string]string{
	"cid":             "cid",
	"card":            "cid",
	"country":         "country",
	"pays":            "country",
	"monthly_limit":   "monthly_limit",
	"monthly_used":    "monthly_used",
	"recharge_limit":  "recharge_limit",
	"expiration_date": "expiration_date",
	"expiry":          "expiration_date",
	"status":          "status",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.ReplaceAll(h, " ", "_")
	return strings.ReplaceAll(h, "-", "_")
}

// CardRows turns sheet cells into import rows. The first non-empty row is the header;
// cid and country columns are mandatory. Blank lines are dropped.
func CardRows(rows [][]string) ([]dto.CardImportRow, error) {
	headerAt := -1
	for i, r := range rows {
		if !isEmptyRow(r) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("file is empty")
	}

	index := map[string]int{}
	for i, h := range rows[headerAt] {
		if field, ok := cardColumns[normalizeHeader(h)]; ok {
			if _, dup := index[field]; !dup {
				index[field] = i
			}
		}
	}
	for _, required := range []string{"cid", "country"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing %s column", required)
		}
	}

	cell := func(r []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(r) {
			return ""
		}
		return strings.TrimSpace(r[i])
	}

	out := []dto.CardImportRow{}
	for i := headerAt + 1; i < len(rows); i++ {
		r := rows[i]
		if isEmptyRow(r) {
			continue
		}
		out = append(out, dto.CardImportRow{
			Line:           i + 1,
			CID:            cell(r, "cid"),
			Country:        cell(r, "country"),
			MonthlyLimit:   cell(r, "monthly_limit"),
			MonthlyUsed:    cell(r, "monthly_used"),
			RechargeLimit:  cell(r, "recharge_limit"),
			ExpirationDate: cell(r, "expiration_date"),
			Status:         cell(r, "status"),
		})
	}
	return out, nil
}
