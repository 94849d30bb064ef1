package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"gromail/internal/config"
	"gromail/internal/storage"
)

// A broken receipt: recognised subject, but the body is missing every
// section marker. It must fail its own email without stopping the batch.
const brokenReceipt = `From: ASDA Groceries <no-reply@asda.co.uk>
To: customer@example.com
Subject: Order Receipt
Date: Sat, 12 Sep 2020 10:30:00 +0000
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

<table><tr><td><div>nothing useful in here</div></td></tr></table>
`

func TestProcessDirectoryIsolatesFailures(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "groceries.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	catPath := filepath.Join(tmp, "categories.txt")
	if err := os.WriteFile(catPath, []byte("Fresh Fruit\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	mailDir := filepath.Join(tmp, "mail")
	if err := os.MkdirAll(mailDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mailDir, "a_broken.eml"), []byte(brokenReceipt), 0o644); err != nil {
		t.Fatal(err)
	}
	good, err := os.ReadFile(filepath.Join("testdata", "order_confirmation.eml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mailDir, "b_good.eml"), good, 0o644); err != nil {
		t.Fatal(err)
	}

	proc, err := NewProcessingService(db, config.Config{CategoriesPath: catPath})
	if err != nil {
		t.Fatal(err)
	}

	result, err := proc.ProcessDirectory(mailDir)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 1 || result.Failed != 1 {
		t.Fatalf("result=%+v", result)
	}

	// the broken email carries its failure, the good one landed anyway
	failed, err := db.GetEmailByProviderMessageID("file", "a_broken.eml")
	if err != nil {
		t.Fatal(err)
	}
	if failed == nil || failed.Status != "failed" || failed.Error == "" {
		t.Fatalf("broken email row=%+v", failed)
	}

	processed, err := db.GetEmailByProviderMessageID("file", "b_good.eml")
	if err != nil {
		t.Fatal(err)
	}
	if processed == nil || processed.Status != "processed" {
		t.Fatalf("good email row=%+v", processed)
	}

	stored, err := db.GetOrderRecords("789456123")
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil {
		t.Fatal("good order missing")
	}
}
