package export

import (
	"bytes"
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"quarra/internal/core"
	"quarra/internal/report"
	"quarra/internal/sheets/memory"
)

func buildReport(t *testing.T) *report.Report {
	t.Helper()
	store := memory.New(
		core.Series{
			Kind:   core.Production,
			Fields: []string{"Valore", "Pezzi"},
			Records: []core.Record{
				{Date: core.NewDate(2024, time.June, 3), Fields: []core.Field{{Name: "Valore", Value: core.ParseAmount("600")}, {Name: "Pezzi", Value: core.ParseAmount("3")}}},
				{Date: core.NewDate(2024, time.June, 7), Fields: []core.Field{{Name: "Valore", Value: core.ParseAmount("400.25")}, {Name: "Pezzi", Value: core.ParseAmount("")}}},
				{Date: core.NewDate(2024, time.June, 12), Fields: []core.Field{{Name: "Valore", Value: core.ParseAmount("10")}, {Name: "Pezzi", Value: core.ParseAmount("1")}}},
				{Date: core.NewDate(2024, time.July, 1), Fields: []core.Field{{Name: "Valore", Value: core.ParseAmount("99")}}},
			},
		},
		core.Series{Kind: core.Income, Fields: []string{"Importo"}},
		core.Series{Kind: core.Balance, Fields: []string{"Saldo"}, Records: []core.Record{
			{Date: core.NewDate(2024, time.June, 28), Fields: []core.Field{{Name: "Saldo", Value: core.ParseAmount("-12,5")}}},
		}},
	)
	b := &report.Builder{Reader: store, WeekEndsOn: time.Friday}
	rep, err := b.Build(context.Background(), &core.YearMonth{Year: 2024, Month: time.June})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	return rep
}

func openWorkbook(t *testing.T, rep *report.Report) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, rep); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteWorkbook_Sheets(t *testing.T) {
	f := openWorkbook(t, buildReport(t))
	want := []string{"Weekly Production", "Weekly Bank Income", "Weekly Bank Expenses", "Weekly Balance"}
	if got := f.GetSheetList(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
}

func TestWriteWorkbook_ProductionRows(t *testing.T) {
	f := openWorkbook(t, buildReport(t))
	rows, err := f.GetRows("Weekly Production", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if !reflect.DeepEqual(rows[0], []string{"Data", "Valore", "Pezzi", "Week"}) {
		t.Fatalf("header = %v", rows[0])
	}
	// Two June weeks; the July week is filtered out.
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[1][1] != "1000.25" || rows[1][2] != "3" || rows[1][3] != "01-Jun → 07-Jun" {
		t.Fatalf("first week = %v", rows[1])
	}
	if rows[2][3] != "08-Jun → 14-Jun" {
		t.Fatalf("second week label = %q", rows[2][3])
	}

	formatted, err := f.GetCellValue("Weekly Production", "A2")
	if err != nil || formatted != "2024-06-07" {
		t.Fatalf("date cell = %q err=%v", formatted, err)
	}
}

func TestWriteWorkbook_EmptySeriesHeaderOnly(t *testing.T) {
	f := openWorkbook(t, buildReport(t))

	rows, err := f.GetRows("Weekly Bank Income")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], []string{"Data", "Importo", "Week"}) {
		t.Fatalf("income sheet = %v", rows)
	}

	// Missing series: no fields known, just the fixed columns.
	rows, err = f.GetRows("Weekly Bank Expenses")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], []string{"Data", "Week"}) {
		t.Fatalf("expense sheet = %v", rows)
	}
}

func TestWriteWorkbook_NegativeBalance(t *testing.T) {
	f := openWorkbook(t, buildReport(t))
	v, err := f.GetCellValue("Weekly Balance", "B2", excelize.Options{RawCellValue: true})
	if err != nil || v != "-12.5" {
		t.Fatalf("balance = %q err=%v", v, err)
	}
}

func TestWriteWorkbook_NilReport(t *testing.T) {
	if err := WriteWorkbook(&bytes.Buffer{}, nil); err == nil {
		t.Fatalf("expected error for nil report")
	}
}
