package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quarra/internal/core"
	ports "quarra/internal/sheets"
)

func TestStoreReplaceAndRead(t *testing.T) {
	s := New()
	if _, err := s.ReadSeries(context.Background(), core.Income); !errors.Is(err, ports.ErrSeriesNotFound) {
		t.Fatalf("expected ErrSeriesNotFound, got %v", err)
	}

	in := core.Series{Kind: core.Income, Fields: []string{"Importo"}}
	if err := s.ReplaceSeries(context.Background(), in); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.ReadSeries(context.Background(), core.Income)
	if err != nil || got.Kind != core.Income || len(got.Fields) != 1 {
		t.Fatalf("unexpected read: %+v err=%v", got, err)
	}

	if err := s.ReplaceSeries(context.Background(), core.Series{Kind: "profit"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestNewFromFilesReadsCSV(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("Produzione.csv", "Data,Valore\n2024-06-03,400\n2024-06-07,600\nbad,1\n")

	s := NewFromFiles(dir, ports.DefaultLayout())
	got, err := s.ReadSeries(context.Background(), core.Production)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(got.Records))
	}
	buckets := core.AggregateByWeek(got.Records, time.Friday)
	if len(buckets) != 1 || buckets[0].Primary().IntPart() != 1000 {
		t.Fatalf("unexpected buckets: %+v", buckets)
	}

	// Missing file means no data for that series.
	if _, err := s.ReadSeries(context.Background(), core.Balance); !errors.Is(err, ports.ErrSeriesNotFound) {
		t.Fatalf("expected ErrSeriesNotFound, got %v", err)
	}
}
