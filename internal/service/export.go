package service

import (
	"bytes"
	"fmt"
	"time"

	"blakkisvuohi/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Juomat"

// ExportFileName names a ledger export taken at t.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("juomat_%s.xlsx", t.Format("2006-01-02"))
}

// ExportDrinks renders a drink ledger as an xlsx workbook.
func ExportDrinks(drinks []models.Drink, loc *time.Location) (*bytes.Buffer, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("error deleting default sheet: %w", err)
	}

	header := []interface{}{"Aika", "Juoma", "Alkoholi (g)"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetCellStyle(exportSheet, "A1", "C1", style)
	}

	total := 0.0
	for i, d := range drinks {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{d.Created.In(loc).Format("2006-01-02 15:04"), d.Description, d.Grams()}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("error writing row %d: %w", i+2, err)
		}
		total += d.Grams()
	}

	totalRow := len(drinks) + 2
	_ = f.SetCellValue(exportSheet, fmt.Sprintf("B%d", totalRow), "Yhteensä")
	_ = f.SetCellValue(exportSheet, fmt.Sprintf("C%d", totalRow), total)

	_ = f.SetColWidth(exportSheet, "A", "A", 18)
	_ = f.SetColWidth(exportSheet, "B", "B", 30)
	_ = f.SetColWidth(exportSheet, "C", "C", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return buf, nil
}
