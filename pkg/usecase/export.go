package usecase

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/xuri/excelize/v2"
)

// ExportFormat selects the file type of a case export
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat parses a format name. Empty means CSV.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	default:
		return "", goerr.Wrap(ErrInvalidExportFormat, "unsupported export format", goerr.V("format", s))
	}
}

// ContentType returns the MIME type of the format
func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName returns the download name of an export created at t
func (f ExportFormat) FileName(t time.Time) string {
	return "cases-" + t.UTC().Format("20060102-150405") + "." + string(f)
}

const exportSheet = "Cases"

var exportHeaders = []string{"Reference", "Debtor", "Amount", "Currency", "Status", "Created", "Updated"}

func exportRow(c *model.Case) []string {
	return []string{
		c.Reference,
		c.Debtor.Name,
		strconv.FormatFloat(c.Amount, 'f', 2, 64),
		c.Currency,
		c.Status.Label(),
		c.CreatedAt.UTC().Format(time.RFC3339),
		c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ExportCases writes every case matching the query, without pagination, in
// the list's sort order. It returns the number of exported rows.
func (uc *CaseUseCase) ExportCases(ctx context.Context, q model.CaseQuery, format ExportFormat, w io.Writer) (int, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return 0, err
	}

	rows, err := uc.scopedRows(ctx, id)
	if err != nil {
		return 0, err
	}
	cases := FilterCases(rows, id, q)
	SortCases(cases, q.SortKey, q.SortOrder)

	switch format {
	case ExportXLSX:
		err = writeXLSX(w, cases)
	case ExportCSV, "":
		err = writeCSV(w, cases)
	default:
		err = goerr.Wrap(ErrInvalidExportFormat, "unsupported export format", goerr.V("format", format))
	}
	if err != nil {
		return 0, err
	}
	return len(cases), nil
}

func writeCSV(w io.Writer, cases []*model.Case) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return goerr.Wrap(err, "failed to write CSV header")
	}
	for _, c := range cases {
		if err := cw.Write(exportRow(c)); err != nil {
			return goerr.Wrap(err, "failed to write CSV row", goerr.V(CaseIDKey, c.ID))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return goerr.Wrap(err, "failed to flush CSV")
	}
	return nil
}

func writeXLSX(w io.Writer, cases []*model.Case) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return goerr.Wrap(err, "failed to create sheet")
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return goerr.Wrap(err, "failed to remove default sheet")
	}

	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return goerr.Wrap(err, "invalid header cell")
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return goerr.Wrap(err, "failed to write header")
		}
	}

	for r, c := range cases {
		values := []any{
			c.Reference,
			c.Debtor.Name,
			c.Amount,
			c.Currency,
			c.Status.Label(),
			c.CreatedAt.UTC().Format(time.RFC3339),
			c.UpdatedAt.UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return goerr.Wrap(err, "invalid cell")
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return goerr.Wrap(err, "failed to write cell", goerr.V(CaseIDKey, c.ID))
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return goerr.Wrap(err, "failed to write workbook")
	}
	return nil
}
