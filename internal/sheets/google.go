package sheets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// GoogleStore keeps tabs in a Google spreadsheet using a service account.
//
// The API client is created on first use rather than at startup so that a
// missing credential file surfaces as ErrCredentialsMissing on the request
// that needed it, and is picked up once the file appears.
type GoogleStore struct {
	spreadsheetID   string
	credentialsFile string

	mu  sync.Mutex
	svc *gsheets.Service
}

// NewGoogleStore returns a store for the given spreadsheet.
func NewGoogleStore(spreadsheetID, credentialsFile string) *GoogleStore {
	return &GoogleStore{spreadsheetID: spreadsheetID, credentialsFile: credentialsFile}
}

func (g *GoogleStore) client(ctx context.Context) (*gsheets.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.svc != nil {
		return g.svc, nil
	}
	if _, err := os.Stat(g.credentialsFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialsMissing, g.credentialsFile)
		}
		return nil, fmt.Errorf("stat credentials: %w", err)
	}
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(g.credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	g.svc = svc
	return svc, nil
}

func (g *GoogleStore) Read(ctx context.Context, tab string, width int) ([][]string, error) {
	svc, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Spreadsheets.Values.Get(g.spreadsheetID, TabRange(tab, width)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tab, err)
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return normalizeRows(rows, width), nil
}

func (g *GoogleStore) Append(ctx context.Context, tab string, rows [][]string) error {
	svc, err := g.client(ctx)
	if err != nil {
		return err
	}
	vr := &gsheets.ValueRange{Values: toValueRows(rows)}
	_, err = svc.Spreadsheets.Values.Append(g.spreadsheetID, QuoteTab(tab)+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", tab, err)
	}
	return nil
}

func (g *GoogleStore) Update(ctx context.Context, tab string, row, col int, values []string) error {
	if row < 0 {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, tab, SheetRow(row))
	}
	svc, err := g.client(ctx)
	if err != nil {
		return err
	}
	vr := &gsheets.ValueRange{Values: toValueRows([][]string{values})}
	_, err = svc.Spreadsheets.Values.Update(g.spreadsheetID, RowRange(tab, row, col, len(values)), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", tab, err)
	}
	return nil
}

func (g *GoogleStore) EnsureTab(ctx context.Context, tab string, header []string) error {
	svc, err := g.client(ctx)
	if err != nil {
		return err
	}
	ss, err := svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return nil
		}
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create tab %s: %w", tab, err)
	}

	vr := &gsheets.ValueRange{Values: toValueRows([][]string{header})}
	_, err = svc.Spreadsheets.Values.Update(g.spreadsheetID, HeaderRange(tab, len(header)), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", tab, err)
	}
	return nil
}

func toValueRows(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		out[i] = toInterfaces(r)
	}
	return out
}
