package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"quarra/internal/core"
	"quarra/internal/sheets"
	"quarra/internal/sheets/memory"
	"quarra/internal/storage"
)

func newStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "quarra.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func source() *memory.Store {
	return memory.New(
		core.Series{Kind: core.Production, Fields: []string{"Valore"}, Records: []core.Record{
			{Date: core.NewDate(2024, time.June, 3), Fields: []core.Field{{Name: "Valore", Value: core.ParseAmount("600")}}},
			{Date: core.NewDate(2024, time.June, 7), Fields: []core.Field{{Name: "Valore", Value: core.ParseAmount("400")}}},
		}},
		core.Series{Kind: core.Balance, Fields: []string{"Saldo"}, Records: []core.Record{
			{Date: core.NewDate(2024, time.June, 7), Fields: []core.Field{{Name: "Saldo", Value: core.ParseAmount("1500")}}},
		}},
	)
}

func TestImport(t *testing.T) {
	repo := newStore(t)
	svc := NewImportService(repo)
	ctx := context.Background()

	res, err := svc.Import(ctx, "memory", source())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.ID == "" || res.Total() != 3 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Missing) != 2 || res.Missing[0] != core.Income || res.Missing[1] != core.Expense {
		t.Fatalf("missing = %v", res.Missing)
	}

	prod, err := repo.ReadSeries(ctx, core.Production)
	if err != nil || len(prod.Records) != 2 {
		t.Fatalf("production: %+v err=%v", prod, err)
	}
	// Missing series are stored empty, so they no longer read as not found.
	inc, err := repo.ReadSeries(ctx, core.Income)
	if err != nil || !inc.IsEmpty() {
		t.Fatalf("income: %+v err=%v", inc, err)
	}

	runs, err := repo.ListImportRuns(ctx, 5)
	if err != nil || len(runs) != 1 || runs[0].Status != storage.StatusSucceeded || runs[0].Records != 3 {
		t.Fatalf("runs = %+v err=%v", runs, err)
	}
}

type brokenReader struct{}

func (brokenReader) ReadSeries(_ context.Context, kind core.SeriesKind) (core.Series, error) {
	if kind == core.Expense {
		return core.Series{}, errors.New("permission denied")
	}
	return core.Series{Kind: kind}, nil
}

func TestImport_SourceErrorKeepsStoredData(t *testing.T) {
	repo := newStore(t)
	svc := NewImportService(repo)
	ctx := context.Background()

	if _, err := svc.ImportWithID(ctx, "first", "memory", source()); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if _, err := svc.ImportWithID(ctx, "second", "broken", brokenReader{}); err == nil {
		t.Fatalf("expected error from broken source")
	}

	prod, err := repo.ReadSeries(ctx, core.Production)
	if err != nil || len(prod.Records) != 2 {
		t.Fatalf("production overwritten: %+v err=%v", prod, err)
	}

	runs, err := repo.ListImportRuns(ctx, 5)
	if err != nil || len(runs) != 2 {
		t.Fatalf("runs = %+v err=%v", runs, err)
	}
	var failed *storage.ImportRun
	for i := range runs {
		if runs[i].ID == "second" {
			failed = &runs[i]
		}
	}
	if failed == nil || failed.Status != storage.StatusFailed || failed.Error == "" {
		t.Fatalf("failed run not recorded: %+v", runs)
	}
}

func TestImportWorkbook(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Entrate"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	_ = f.SetSheetRow("Entrate", "A1", &[]any{"Data", "Importo"})
	_ = f.SetSheetRow("Entrate", "A2", &[]any{"2024-06-05", "120,50"})
	path := filepath.Join(t.TempDir(), "dati.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.Close()

	repo := newStore(t)
	res, err := NewImportService(repo).ImportWorkbook(context.Background(), "wb-1", path, sheets.DefaultLayout())
	if err != nil {
		t.Fatalf("import workbook: %v", err)
	}
	if res.ID != "wb-1" || res.Records[core.Income] != 1 || len(res.Missing) != 3 {
		t.Fatalf("result = %+v", res)
	}
	inc, err := repo.ReadSeries(context.Background(), core.Income)
	if err != nil || inc.Records[0].Value("Importo").Decimal.String() != "120.5" {
		t.Fatalf("income = %+v err=%v", inc, err)
	}

	if _, err := NewImportService(repo).ImportWorkbook(context.Background(), "wb-2", filepath.Join(t.TempDir(), "none.xlsx"), sheets.DefaultLayout()); err == nil {
		t.Fatalf("expected error for missing workbook")
	}
}
