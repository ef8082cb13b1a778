package sheets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
)

// WorkbookStore keeps tabs as worksheets of a local .xlsx file.
//
// The workbook is loaded once and saved after every mutation, so the file on
// disk can be opened in a spreadsheet program between requests.
type WorkbookStore struct {
	mu   sync.Mutex
	path string
	file *excelize.File
}

// OpenWorkbook opens the workbook at path, creating an empty one when the
// file does not exist yet.
func OpenWorkbook(path string) (*WorkbookStore, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open workbook %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create workbook dir: %w", err)
		}
		f = excelize.NewFile()
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("create workbook %s: %w", path, err)
		}
	}
	return &WorkbookStore{path: path, file: f}, nil
}

// Close releases the workbook.
func (w *WorkbookStore) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func (w *WorkbookStore) Read(_ context.Context, tab string, width int) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.hasTab(tab) {
		return nil, fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	rows, err := w.file.GetRows(tab)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tab, err)
	}
	if len(rows) <= HeaderRows {
		return nil, nil
	}
	return normalizeRows(rows[HeaderRows:], width), nil
}

func (w *WorkbookStore) Append(_ context.Context, tab string, rows [][]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.hasTab(tab) {
		return fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	existing, err := w.file.GetRows(tab)
	if err != nil {
		return fmt.Errorf("read %s: %w", tab, err)
	}
	next := len(existing)
	for next > HeaderRows && isBlank(existing[next-1]) {
		next--
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, next+i+1)
		if err != nil {
			return err
		}
		values := toInterfaces(r)
		if err := w.file.SetSheetRow(tab, cell, &values); err != nil {
			return fmt.Errorf("append %s: %w", tab, err)
		}
	}
	return w.save()
}

func (w *WorkbookStore) Update(_ context.Context, tab string, row, col int, values []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.hasTab(tab) {
		return fmt.Errorf("%w: %s", ErrTabNotFound, tab)
	}
	existing, err := w.file.GetRows(tab)
	if err != nil {
		return fmt.Errorf("read %s: %w", tab, err)
	}
	if row < 0 || row+HeaderRows >= len(existing) {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, tab, SheetRow(row))
	}
	cell, err := excelize.CoordinatesToCellName(col+1, SheetRow(row))
	if err != nil {
		return err
	}
	vals := toInterfaces(values)
	if err := w.file.SetSheetRow(tab, cell, &vals); err != nil {
		return fmt.Errorf("update %s: %w", tab, err)
	}
	return w.save()
}

func (w *WorkbookStore) EnsureTab(_ context.Context, tab string, header []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.hasTab(tab) {
		return nil
	}
	if _, err := w.file.NewSheet(tab); err != nil {
		return fmt.Errorf("create tab %s: %w", tab, err)
	}
	vals := toInterfaces(header)
	if err := w.file.SetSheetRow(tab, "A1", &vals); err != nil {
		return fmt.Errorf("write header %s: %w", tab, err)
	}
	return w.save()
}

// Snapshot returns the current workbook bytes.
func (w *WorkbookStore) Snapshot(_ context.Context) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf, err := w.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("snapshot workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *WorkbookStore) hasTab(tab string) bool {
	idx, err := w.file.GetSheetIndex(tab)
	return err == nil && idx >= 0
}

func (w *WorkbookStore) save() error {
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func toInterfaces(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
