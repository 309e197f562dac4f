package service

import (
	"fmt"
	"os"
	"path/filepath"

	"sheetwatch/internal/models"

	"github.com/xuri/excelize/v2"
)

// ReportService writes a run's error records to an Excel report for
// download.
type ReportService struct{}

func NewReportService() *ReportService {
	return &ReportService{}
}

// ExportRunErrors writes one sheet with the run header and the error
// records underneath, and returns nothing beyond the error, the caller
// already knows the path.
func (s *ReportService) ExportRunErrors(run *models.ValidationRun, errs []models.RunError, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Validation Errors"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Run Code")
	f.SetCellValue(sheetName, "B1", run.RunCode)
	f.SetCellValue(sheetName, "A2", "Result")
	f.SetCellValue(sheetName, "B2", run.Result)
	f.SetCellValue(sheetName, "A3", "Error Count")
	f.SetCellValue(sheetName, "B3", run.ErrorCount)

	headers := []string{"#", "Rule Code", "Checked", "Message"}
	for i, header := range headers {
		cell := fmt.Sprintf("%s5", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, e := range errs {
		row := rowIdx + 6
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), rowIdx+1)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), e.RuleCode)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), e.Action)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), e.Message)
	}

	f.SetColWidth(sheetName, "B", "B", 15)
	f.SetColWidth(sheetName, "C", "C", 50)
	f.SetColWidth(sheetName, "D", "D", 70)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save export file: %w", err)
	}

	return nil
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
