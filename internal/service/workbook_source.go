package service

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RowSource supplies the raw rows of a named sheet, header rows included.
type RowSource interface {
	FetchRows(sheetName string) ([][]string, error)
}

// WorkbookSource reads sheets from an Excel workbook on disk. The file is
// opened per fetch so a pass always sees the state saved by the user.
type WorkbookSource struct {
	path string
}

func NewWorkbookSource(path string) *WorkbookSource {
	return &WorkbookSource{path: path}
}

func (s *WorkbookSource) FetchRows(sheetName string) ([][]string, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}

	return rows, nil
}
