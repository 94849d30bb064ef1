package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gromail/internal"
	"gromail/internal/storage"
)

func TestWriteSpendReport(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "groceries.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	records := internal.OrderRecords{
		Order: internal.Order{
			OrderNumber:  "789456123",
			DeliveryDate: time.Date(2020, 9, 12, 0, 0, 0, 0, time.UTC),
			Subtotal:     decimal.RequireFromString("24.50"),
			Total:        decimal.RequireFromString("24.00"),
		},
		Delivered: []internal.DeliveredItem{
			{
				OrderNumber: "789456123", ItemName: "Bananas 5 Pack",
				Price: decimal.RequireFromString("1.20"), Quantity: 2,
				UnitPrice: decimal.RequireFromString("0.60"),
			},
		},
	}
	if err := db.ReplaceOrder(records); err != nil {
		t.Fatal(err)
	}

	paths, err := WriteSpendReport(db, filepath.Join(tmp, "reports"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths=%v", paths)
	}

	spendRows := readCSV(t, paths[0])
	if len(spendRows) != 2 {
		t.Fatalf("spend rows=%v", spendRows)
	}
	if spendRows[1][0] != "2020-09" || spendRows[1][1] != "24.00" {
		t.Fatalf("spend row=%v", spendRows[1])
	}

	countRows := readCSV(t, paths[1])
	if len(countRows) != 2 {
		t.Fatalf("count rows=%v", countRows)
	}
	if countRows[1][0] != "2020-09-12" || countRows[1][1] != "1" || countRows[1][2] != "0" || countRows[1][3] != "0" {
		t.Fatalf("count row=%v", countRows[1])
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}
