package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Generates a sample workbook with a Rules sheet and a Bin data sheet.
// The data sheet is seeded with one defect per rule so a validation run
// exercises every check.
func main() {
	f := excelize.NewFile()
	defer f.Close()

	rulesSheet := "Rules"
	rulesIndex, err := f.NewSheet(rulesSheet)
	if err != nil {
		fmt.Printf("Error creating Rules sheet: %v\n", err)
		return
	}

	ruleHeaders := []string{"Rule Code", "Description", "Columns", "Values"}
	for i, header := range ruleHeaders {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(rulesSheet, cell, header)
	}

	// Units/schema row, skipped by the validator together with the header
	ruleUnits := []string{"(code)", "(text)", "(column letters)", "(comma separated)"}
	for i, unit := range ruleUnits {
		cell := fmt.Sprintf("%s2", getColumnName(i))
		f.SetCellValue(rulesSheet, cell, unit)
	}

	rules := [][]interface{}{
		{"wh", "Warehouse column must hold an allowed code", "A", "WH1,WH2,WH3"},
		{"dup", "SKU column must not contain duplicate values", "B", ""},
		{"row_dup", "Rows must not be repeated", "", ""},
		{"bin_for", "Bin locations must match the AB-12-345 format", "C", ""},
		{"map_false", "Bulk storage cannot sit in the Floor section", "D,E", "Bulk,Floor"},
	}

	for rowIdx, rule := range rules {
		row := rowIdx + 3
		for colIdx, value := range rule {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(rulesSheet, cell, value)
		}
	}

	f.SetColWidth(rulesSheet, "B", "B", 50)
	f.SetColWidth(rulesSheet, "D", "D", 25)

	binSheet := "Bin"
	_, err = f.NewSheet(binSheet)
	if err != nil {
		fmt.Printf("Error creating Bin sheet: %v\n", err)
		return
	}

	binHeaders := []string{"Warehouse", "SKU", "Bin", "Storage Type", "Storage Section"}
	for i, header := range binHeaders {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(binSheet, cell, header)
	}

	// Seeded defects:
	//   row 4 - warehouse code outside the allowed list
	//   row 5 - duplicate SKU
	//   row 6 - bad bin format
	//   row 7 - illegal Bulk/Floor combination
	//   row 8 - exact repeat of row 2
	binData := [][]interface{}{
		{"WH1", "SKU-1001", "AA-01-001", "Bulk", "Rack"},
		{"WH2", "SKU-1002", "AB-02-010", "Loose", "Shelf"},
		{"WH9", "SKU-1003", "AC-03-020", "Loose", "Rack"},
		{"WH3", "SKU-1001", "AD-04-030", "Bulk", "Rack"},
		{"WH1", "SKU-1004", "ad-4-30", "Loose", "Shelf"},
		{"WH2", "SKU-1005", "AE-05-040", "Bulk", "Floor"},
		{"WH1", "SKU-1001", "AA-01-001", "Bulk", "Rack"},
	}

	for rowIdx, rowData := range binData {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(binSheet, cell, value)
		}
	}

	f.SetActiveSheet(rulesIndex)
	f.DeleteSheet("Sheet1")

	outputPath := filepath.Join("storage", "workbooks", "warehouse.xlsx")
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		return
	}
	if err := f.SaveAs(outputPath); err != nil {
		fmt.Printf("Error saving file: %v\n", err)
		return
	}

	fmt.Printf("✓ Sample workbook created: %s\n", outputPath)
	fmt.Printf("  Rules: %d, data rows: %d\n", len(rules), len(binData))
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}
