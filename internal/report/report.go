// Package report produces the spending summaries the grocery dashboard reads:
// total spend per delivery month and the proportion of each delivery that was
// substituted or unavailable.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gromail/internal/storage"
)

// WriteSpendReport writes monthly_spend.csv and delivery_counts.csv under
// outputDir and returns the paths written.
func WriteSpendReport(db *storage.DB, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	spend, err := db.MonthlySpend()
	if err != nil {
		return nil, err
	}
	spendRows := [][]string{{"month", "total_spend"}}
	for _, row := range spend {
		spendRows = append(spendRows, []string{row.Month, strconv.FormatFloat(row.Total, 'f', 2, 64)})
	}
	spendPath := filepath.Join(outputDir, "monthly_spend.csv")
	if err := writeCSV(spendPath, spendRows); err != nil {
		return nil, err
	}

	counts, err := db.DeliveryCounts()
	if err != nil {
		return nil, err
	}
	countRows := [][]string{{"delivery_date", "count_ordered", "count_subs", "count_unavailable"}}
	for _, row := range counts {
		countRows = append(countRows, []string{
			row.DeliveryDate,
			strconv.Itoa(row.Ordered),
			strconv.Itoa(row.Substituted),
			strconv.Itoa(row.Unavailable),
		})
	}
	countsPath := filepath.Join(outputDir, "delivery_counts.csv")
	if err := writeCSV(countsPath, countRows); err != nil {
		return nil, err
	}

	return []string{spendPath, countsPath}, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(f)
	if err := writer.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
