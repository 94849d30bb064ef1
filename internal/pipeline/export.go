package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"gromail/internal"
)

// ExportOrderCSV writes the three record sets for one order as CSV files in a
// per-delivery-date directory and returns that directory. The unavailable
// file is only written when the order has unavailable items.
func ExportOrderCSV(records internal.OrderRecords, outputDir string) (string, error) {
	date := records.Order.DeliveryDate.Format("2006-01-02")
	dir := filepath.Join(outputDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	orderRows := [][]string{
		{"order_number", "delivery_date", "subtotal", "total"},
		{
			records.Order.OrderNumber,
			date,
			records.Order.Subtotal.String(),
			records.Order.Total.String(),
		},
	}
	if err := writeCSV(filepath.Join(dir, "order_details_"+date+".csv"), orderRows); err != nil {
		return "", err
	}

	deliveredRows := [][]string{
		{"order_number", "item", "substitution", "substituting", "price", "quantity", "unit_price"},
	}
	for _, item := range records.Delivered {
		deliveredRows = append(deliveredRows, []string{
			item.OrderNumber,
			item.ItemName,
			strconv.FormatBool(item.Substitution),
			item.SubstitutingItem,
			item.Price.String(),
			strconv.Itoa(item.Quantity),
			item.UnitPrice.String(),
		})
	}
	if err := writeCSV(filepath.Join(dir, "delivered_items_"+date+".csv"), deliveredRows); err != nil {
		return "", err
	}

	if len(records.Unavailable) > 0 {
		unavailableRows := [][]string{{"order_number", "item", "quantity"}}
		for _, item := range records.Unavailable {
			unavailableRows = append(unavailableRows, []string{
				item.OrderNumber,
				item.ItemName,
				strconv.Itoa(item.Quantity),
			})
		}
		if err := writeCSV(filepath.Join(dir, "unavailable_items_"+date+".csv"), unavailableRows); err != nil {
			return "", err
		}
	}

	return dir, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(f)
	if err := writer.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ExportOrderXLSX writes one order as a review spreadsheet: the header block,
// the delivered items, then the unavailable items.
func ExportOrderXLSX(records internal.OrderRecords, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	set := func(col, row int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, value)
	}

	set(1, 1, "order_number")
	set(2, 1, "delivery_date")
	set(3, 1, "subtotal")
	set(4, 1, "total")
	set(1, 2, records.Order.OrderNumber)
	set(2, 2, records.Order.DeliveryDate.Format("2006-01-02"))
	set(3, 2, records.Order.Subtotal.String())
	set(4, 2, records.Order.Total.String())

	headers := []string{"item", "substitution", "substituting", "price", "quantity", "unit_price"}
	headerRow := 4
	for i, h := range headers {
		set(i+1, headerRow, h)
	}
	row := headerRow + 1
	for _, item := range records.Delivered {
		set(1, row, item.ItemName)
		set(2, row, item.Substitution)
		set(3, row, item.SubstitutingItem)
		set(4, row, item.Price.String())
		set(5, row, item.Quantity)
		set(6, row, item.UnitPrice.String())
		row++
	}

	if len(records.Unavailable) > 0 {
		row++
		set(1, row, "unavailable item")
		set(2, row, "quantity")
		row++
		for _, item := range records.Unavailable {
			set(1, row, item.ItemName)
			set(2, row, item.Quantity)
			row++
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}
