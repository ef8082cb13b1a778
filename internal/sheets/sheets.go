// Package sheets stores application data in spreadsheet tabs.
//
// A tab is a table: row 1 holds the header, every following row is a record
// and columns are addressed by letter. Backends exist for Google Sheets, a
// local xlsx workbook and process memory. All of them expose the same narrow
// surface: read a fixed-width range, append rows, overwrite cells of one row.
//
// # Row arithmetic
//
// Callers work with 0-based data-row indices as returned by [Store.Read].
// Data row i lives on sheet row i+2 (row 1 is the header), which is the only
// place that translation happens:
//
//	rows, _ := store.Read(ctx, "Members", 10)
//	for i, row := range rows {
//	    if row[0] == "A-101" {
//	        store.Update(ctx, "Members", i, 6, []string{"Vacated"}) // column G
//	    }
//	}
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCredentialsMissing is returned when the credential file for a remote
	// spreadsheet backend does not exist.
	ErrCredentialsMissing = errors.New("spreadsheet credentials file not found")

	// ErrTabNotFound is returned when a tab does not exist in the workbook.
	ErrTabNotFound = errors.New("tab not found")

	// ErrRowOutOfRange is returned when an update addresses a row that does not exist.
	ErrRowOutOfRange = errors.New("row out of range")
)

// HeaderRows is the number of rows above the first data row.
const HeaderRows = 1

// Store is a spreadsheet used as a table store.
type Store interface {
	// Read returns all data rows of tab (header excluded), each padded or
	// truncated to width columns. Trailing blank rows are dropped.
	Read(ctx context.Context, tab string, width int) ([][]string, error)

	// Append adds rows after the last non-empty row of tab.
	Append(ctx context.Context, tab string, rows [][]string) error

	// Update overwrites len(values) cells of data row `row`, starting at
	// 0-based column col.
	Update(ctx context.Context, tab string, row, col int, values []string) error

	// EnsureTab creates tab with the given header when it does not exist.
	// An existing tab is left untouched.
	EnsureTab(ctx context.Context, tab string, header []string) error
}

// Snapshotter is implemented by backends that can export the whole workbook.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// ColumnLetter converts a 0-based column index to its letter name (0 -> A, 26 -> AA).
func ColumnLetter(col int) string {
	if col < 0 {
		return ""
	}
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// ColumnIndex converts a column letter name to its 0-based index (A -> 0).
// Returns -1 for an invalid name.
func ColumnIndex(letters string) int {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return -1
	}
	n := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return -1
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1
}

// SheetRow returns the 1-based sheet row number of a 0-based data row.
func SheetRow(dataRow int) int {
	return dataRow + HeaderRows + 1
}

// QuoteTab quotes a tab name for use in A1 notation when needed.
func QuoteTab(tab string) string {
	if strings.ContainsAny(tab, " '!") {
		return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
	}
	return tab
}

// TabRange returns the A1 range covering all data rows of width columns,
// e.g. Members!A2:J.
func TabRange(tab string, width int) string {
	return fmt.Sprintf("%s!A%d:%s", QuoteTab(tab), HeaderRows+1, ColumnLetter(width-1))
}

// HeaderRange returns the A1 range of the header row, e.g. Members!A1:J1.
func HeaderRange(tab string, width int) string {
	return fmt.Sprintf("%s!A1:%s1", QuoteTab(tab), ColumnLetter(width-1))
}

// RowRange returns the A1 range of width cells on data row `row` starting at
// column col, e.g. Maintenance!A7:A7.
func RowRange(tab string, row, col, width int) string {
	r := SheetRow(row)
	return fmt.Sprintf("%s!%s%d:%s%d", QuoteTab(tab), ColumnLetter(col), r, ColumnLetter(col+width-1), r)
}

// normalizeRows pads or truncates each row to width and drops trailing
// blank rows.
func normalizeRows(rows [][]string, width int) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		r := make([]string, width)
		copy(r, row)
		for i := range r {
			r[i] = strings.TrimSpace(r[i])
		}
		out = append(out, r)
	}
	for len(out) > 0 && isBlank(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
