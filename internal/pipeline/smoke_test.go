package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"gromail/internal/config"
	"gromail/internal/storage"
)

func TestSmokeEmailToCSV(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "groceries.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	catPath := filepath.Join(tmp, "categories.txt")
	if err := os.WriteFile(catPath, []byte("Fresh Fruit\nBakery\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rawSrc := filepath.Join("testdata", "order_confirmation.eml")
	rawBlob, err := os.ReadFile(rawSrc)
	if err != nil {
		t.Fatal(err)
	}
	rawPath := filepath.Join(tmp, "fixture.eml")
	if err := os.WriteFile(rawPath, rawBlob, 0o644); err != nil {
		t.Fatal(err)
	}

	email, err := db.UpsertEmail("file", "fixture.eml", "Your updated ASDA Groceries order", "no-reply@asda.co.uk", "2020-09-11T18:02:11Z", "hash", rawPath, "fetched")
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{CategoriesPath: catPath, OutputDir: tmp}
	proc, err := NewProcessingService(db, cfg)
	if err != nil {
		t.Fatal(err)
	}
	records, err := proc.ProcessEmail(email)
	if err != nil {
		t.Fatal(err)
	}

	if records.Order.OrderNumber != "789456123" {
		t.Fatalf("order number=%s", records.Order.OrderNumber)
	}
	if got := records.Order.DeliveryDate.Format("2006-01-02"); got != "2020-09-12" {
		t.Fatalf("delivery date=%s", got)
	}
	if records.Order.Subtotal.String() != "24.5" || records.Order.Total.String() != "24" {
		t.Fatalf("subtotal=%s total=%s", records.Order.Subtotal, records.Order.Total)
	}
	if len(records.Delivered) != 3 {
		t.Fatalf("delivered=%v", records.Delivered)
	}
	if len(records.Unavailable) != 1 {
		t.Fatalf("unavailable=%v", records.Unavailable)
	}

	// the substitute comes first and carries its original item
	sub := records.Delivered[0]
	if !sub.Substitution || sub.ItemName != "Raspberries 300g" || sub.SubstitutingItem != "Strawberries 400g" {
		t.Fatalf("substitute=%+v", sub)
	}

	stored, err := db.GetOrderRecords("789456123")
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil {
		t.Fatal("order not stored")
	}
	if len(stored.Delivered) != 3 || len(stored.Unavailable) != 1 {
		t.Fatalf("stored delivered=%d unavailable=%d", len(stored.Delivered), len(stored.Unavailable))
	}

	// reprocessing replaces rows instead of duplicating them
	if _, err := proc.ProcessEmail(email); err != nil {
		t.Fatal(err)
	}
	stored, err = db.GetOrderRecords("789456123")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Delivered) != 3 {
		t.Fatalf("delivered after reprocess=%d", len(stored.Delivered))
	}

	outDir, err := ExportOrderCSV(*stored, tmp)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"order_details_2020-09-12.csv", "delivered_items_2020-09-12.csv", "unavailable_items_2020-09-12.csv"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatal(err)
		}
	}

	xlsxPath := filepath.Join(tmp, "order.xlsx")
	if err := ExportOrderXLSX(*stored, xlsxPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(xlsxPath); err != nil {
		t.Fatal(err)
	}
}
