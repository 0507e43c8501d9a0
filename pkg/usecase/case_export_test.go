package usecase_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/repository/memory"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
	"github.com/xuri/excelize/v2"
)

func seedExportCases(t *testing.T) *usecase.CaseUseCase {
	t.Helper()
	repo := memory.New()
	for _, c := range []*model.Case{
		{Reference: "INV-1", ClientID: "acme", Debtor: model.Debtor{Name: "Small Debtor"}, Amount: 10, Currency: "EUR", Status: types.CaseStatusNew},
		{Reference: "INV-2", ClientID: "acme", Debtor: model.Debtor{Name: "Big Debtor"}, Amount: 9000.5, Currency: "EUR", Status: types.CaseStatusLegalStage},
		{Reference: "GLX-1", ClientID: "globex", Debtor: model.Debtor{Name: "Other Debtor"}, Amount: 500, Currency: "USD", Status: types.CaseStatusInProgress},
	} {
		_, err := repo.Case().Create(context.Background(), c)
		gt.NoError(t, err).Required()
	}
	return usecase.NewCaseUseCase(repo, nil)
}

func TestExportCases_CSV(t *testing.T) {
	uc := seedExportCases(t)

	var buf bytes.Buffer
	n, err := uc.ExportCases(as(clientID), model.CaseQuery{SortKey: types.CaseSortAmount, SortOrder: types.SortDesc}, usecase.ExportCSV, &buf)
	gt.NoError(t, err).Required()
	gt.Value(t, n).Equal(2)

	records, err := csv.NewReader(&buf).ReadAll()
	gt.NoError(t, err).Required()
	gt.Array(t, records).Length(3)
	gt.Value(t, records[0]).Equal([]string{"Reference", "Debtor", "Amount", "Currency", "Status", "Created", "Updated"})
	gt.Value(t, records[1][0]).Equal("INV-2")
	gt.Value(t, records[1][2]).Equal("9000.50")
	gt.Value(t, records[1][4]).Equal("Legal Stage")
	gt.Value(t, records[2][0]).Equal("INV-1")
}

func TestExportCases_XLSX(t *testing.T) {
	uc := seedExportCases(t)

	var buf bytes.Buffer
	n, err := uc.ExportCases(as(adminID), model.CaseQuery{Search: "debtor", SortKey: types.CaseSortAmount, SortOrder: types.SortAsc}, usecase.ExportXLSX, &buf)
	gt.NoError(t, err).Required()
	gt.Value(t, n).Equal(3)

	f, err := excelize.OpenReader(&buf)
	gt.NoError(t, err).Required()
	defer func() { _ = f.Close() }()

	gt.Value(t, f.GetSheetList()).Equal([]string{"Cases"})

	rows, err := f.GetRows("Cases")
	gt.NoError(t, err).Required()
	gt.Array(t, rows).Length(4)
	gt.Value(t, rows[0][0]).Equal("Reference")
	gt.Value(t, rows[1][0]).Equal("INV-1")
	gt.Value(t, rows[3][0]).Equal("INV-2")
}

func TestExportCases_IgnoresPagination(t *testing.T) {
	uc := seedExportCases(t)

	var buf bytes.Buffer
	n, err := uc.ExportCases(as(adminID), model.CaseQuery{Page: 2, PageSize: 1}, usecase.ExportCSV, &buf)
	gt.NoError(t, err).Required()
	gt.Value(t, n).Equal(3)
}

func TestExportCases_RequiresIdentity(t *testing.T) {
	uc := seedExportCases(t)
	_, err := uc.ExportCases(context.Background(), model.CaseQuery{}, usecase.ExportCSV, &bytes.Buffer{})
	gt.Error(t, err).Is(usecase.ErrUnauthenticated)
}

func TestParseExportFormat(t *testing.T) {
	f, err := usecase.ParseExportFormat("")
	gt.NoError(t, err)
	gt.Value(t, f).Equal(usecase.ExportCSV)

	f, err = usecase.ParseExportFormat("xlsx")
	gt.NoError(t, err)
	gt.Value(t, f).Equal(usecase.ExportXLSX)
	gt.String(t, f.ContentType()).Contains("spreadsheetml")

	_, err = usecase.ParseExportFormat("pdf")
	gt.Error(t, err).Is(usecase.ErrInvalidExportFormat)

	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	gt.Value(t, usecase.ExportCSV.FileName(at)).Equal("cases-20260504-030201.csv")
}
