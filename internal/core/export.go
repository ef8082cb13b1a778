package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Table is a report flattened for export. Cells hold string, int or
// decimal.Decimal values.
type Table struct {
	Title  string
	Header []string
	Rows   [][]interface{}
}

// SummaryTable flattens a summary report, with a totals line at the end.
func SummaryTable(s Summary) Table {
	t := Table{
		Title:  "Summary",
		Header: []string{"Month", "Collected", "Paying Flats", "Expenditure", "Net", "Balance"},
	}
	t.Rows = append(t.Rows, []interface{}{"Opening balance", "", "", "", "", s.Opening})
	for _, m := range s.Months {
		t.Rows = append(t.Rows, []interface{}{m.Month.String(), m.Collected, m.Payers, m.Expenditure, m.Net, m.Balance})
	}
	t.Rows = append(t.Rows, []interface{}{"Total", s.TotalCollected, "", s.TotalExpenditure, s.Net, s.Closing})
	return t
}

// DefaulterTable flattens a defaulter report.
func DefaulterTable(r DefaulterReport) Table {
	t := Table{
		Title:  "Defaulters " + r.Month.String(),
		Header: []string{"Flat No", "Name", "Phone", "Email", "Monthly Fee", "Unpaid Months", "Months", "Amount Due"},
	}
	for _, d := range r.Defaulters {
		months := make([]string, len(d.UnpaidMonths))
		for i, m := range d.UnpaidMonths {
			months[i] = m.String()
		}
		t.Rows = append(t.Rows, []interface{}{
			d.FlatNo, d.Name, d.Phone, d.Email, d.MonthlyFee,
			strings.Join(months, " "), len(d.UnpaidMonths), d.AmountDue,
		})
	}
	t.Rows = append(t.Rows, []interface{}{"Total", "", "", "", "", "", "", r.TotalDue})
	return t
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case decimal.Decimal:
		return FormatAmount(x)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes t as CSV with a header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = formatCell(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes t as a single-sheet workbook. Amounts are written as
// numbers with a two-decimal format.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetTitle(t.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for c, v := range row {
			if d, ok := v.(decimal.Decimal); ok {
				values[c] = d.InexactFloat64()
				cellName, _ := excelize.CoordinatesToCellName(c+1, r+2)
				if err := f.SetCellStyle(sheet, cellName, cellName, money); err != nil {
					return err
				}
				continue
			}
			values[c] = v
		}
		start, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// sheetTitle trims a title to a valid sheet name.
func sheetTitle(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, s)
	if s == "" {
		s = "Report"
	}
	if len(s) > 31 {
		s = s[:31]
	}
	return s
}
