// Package google mirrors published ledgers into a Google Sheets spreadsheet,
// one tab per ledger and scope.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/export"
	"github.com/b1411/finka/internal/log"
	ports "github.com/b1411/finka/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "FINKA"

// Config selects the spreadsheet and the service account. CredentialsJSON
// wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Tab name prefix, e.g. "FINKA" gives "FINKA BDR ALM01 2024-09".
	sheetName string
	logger    *log.Logger
}

var _ ports.LedgerExporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test
// endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// TabName returns the tab a ledger of scope is written to.
func (c *Client) TabName(ledger string, scope core.Scope) string {
	return fmt.Sprintf("%s %s %s %s", c.sheetName, ledger, scope.OrgUnitCode, scope.PeriodYM)
}

// ExportLedgers rewrites the scope's tabs with the current ledgers. Missing
// tabs are created first.
func (c *Client) ExportLedgers(ctx context.Context, scope core.Scope, l core.Ledgers) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := scope.Validate(); err != nil {
		return err
	}

	sheets := export.Sheets(l)
	tabs := make([]string, len(sheets))
	for i, s := range sheets {
		tabs[i] = c.TabName(s.Name, scope)
	}
	if err := c.ensureTabs(ctx, tabs); err != nil {
		return err
	}

	for i, s := range sheets {
		if err := c.writeTab(ctx, tabs[i], s.Rows); err != nil {
			return err
		}
	}

	c.logger.InfoContext(ctx, "Ledgers exported to spreadsheet",
		log.FieldOperation, log.OpExport,
		log.FieldOrgUnit, scope.OrgUnitCode,
		log.FieldPeriod, scope.PeriodYM,
		"spreadsheet_id", c.spreadsheetID,
		"tabs", len(tabs))
	return nil
}

func (c *Client) ensureTabs(ctx context.Context, tabs []string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	existing := make(map[string]bool, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			existing[s.Properties.Title] = true
		}
	}

	var reqs []*gsheet.Request
	for _, tab := range tabs {
		if existing[tab] {
			continue
		}
		reqs = append(reqs, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		})
	}
	if len(reqs) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add tabs: %w", err)
	}
	return nil
}

func (c *Client) writeTab(ctx context.Context, tab string, rows []export.Row) error {
	clearRange := fmt.Sprintf("%s!A:G", tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := make([][]any, 0, len(rows)+1)
	header := make([]any, len(export.Header))
	for i, h := range export.Header {
		header[i] = h
	}
	values = append(values, header)
	for _, r := range rows {
		values = append(values, r.CellValues())
	}

	rng := fmt.Sprintf("%s!A1", tab)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}
