package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// SheetCommandService executes chat commands that modify the workbook
// directly: duplicate-row cleanup and free-form AI-driven updates.
type SheetCommandService struct {
	workbookPath string
	dataSheet    string
	summarizer   Summarizer
	log          *logrus.Logger
}

func NewSheetCommandService(workbookPath, dataSheet string, summarizer Summarizer, log *logrus.Logger) *SheetCommandService {
	return &SheetCommandService{
		workbookPath: workbookPath,
		dataSheet:    dataSheet,
		summarizer:   summarizer,
		log:          log,
	}
}

// DeleteDuplicateRows removes every repeated row tuple from the data sheet,
// keeping the first occurrence, and returns a user-facing summary.
func (s *SheetCommandService) DeleteDuplicateRows() (string, error) {
	f, err := excelize.OpenFile(s.workbookPath)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook %s: %w", s.workbookPath, err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.dataSheet)
	if err != nil {
		return "", fmt.Errorf("failed to read sheet %s: %w", s.dataSheet, err)
	}
	if len(rows) <= 1 {
		return "No data found in the sheet.", nil
	}

	seen := make(map[string]struct{})
	var duplicateRows []int // 1-based sheet row numbers
	for i, row := range rows[1:] {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			duplicateRows = append(duplicateRows, i+2)
			continue
		}
		seen[key] = struct{}{}
	}

	if len(duplicateRows) == 0 {
		return "No duplicate rows found.", nil
	}

	// Delete bottom-up, removing a row shifts everything below it.
	for i := len(duplicateRows) - 1; i >= 0; i-- {
		if err := f.RemoveRow(s.dataSheet, duplicateRows[i]); err != nil {
			return "", fmt.Errorf("failed to remove row %d: %w", duplicateRows[i], err)
		}
	}

	if err := f.Save(); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	s.log.Infof("deleted %d duplicate rows from sheet %s", len(duplicateRows), s.dataSheet)
	return fmt.Sprintf("%d duplicate rows deleted.", len(duplicateRows)), nil
}

type modifiedSheet struct {
	Headers []string   `json:"headers"`
	Data    [][]string `json:"data"`
}

// ApplyCustomUpdate sends the full data sheet plus the user's instruction to
// the AI, expects the modified dataset back as JSON and writes it over the
// sheet starting at A1.
func (s *SheetCommandService) ApplyCustomUpdate(ctx context.Context, instruction string) (string, error) {
	if s.summarizer == nil {
		return "", fmt.Errorf("AI service is not configured")
	}

	f, err := excelize.OpenFile(s.workbookPath)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook %s: %w", s.workbookPath, err)
	}
	defer f.Close()

	rows, err := f.GetRows(s.dataSheet)
	if err != nil {
		return "", fmt.Errorf("failed to read sheet %s: %w", s.dataSheet, err)
	}
	if len(rows) == 0 {
		return "No data found in the sheet.", nil
	}

	headers := rows[0]
	body := rows[1:]

	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return "", fmt.Errorf("failed to encode headers: %w", err)
	}
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode data rows: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are a data processing assistant.\n")
	sb.WriteString("Below is the dataset structure:\n\n")
	sb.WriteString(fmt.Sprintf("Headers: %s\nData:\n%s\n\n", headerJSON, bodyJSON))
	sb.WriteString(fmt.Sprintf("User Request: %q\n\n", instruction))
	sb.WriteString("Modify the data accordingly and return it in JSON format:\n")
	sb.WriteString(`{"headers": [...], "data": [[...], [...]]}`)
	sb.WriteString("\nKeep the headers unchanged. Respond with the JSON object only.")

	s.log.Infof("sending sheet %s to AI for custom update", s.dataSheet)
	response, err := s.summarizer.Summarize(ctx, sb.String())
	if err != nil {
		return "", fmt.Errorf("AI modification request failed: %w", err)
	}

	var modified modifiedSheet
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &modified); err != nil {
		return "", fmt.Errorf("failed to parse AI response: %w", err)
	}
	if len(modified.Headers) == 0 {
		return "", fmt.Errorf("AI response is missing headers")
	}

	full := append([][]string{modified.Headers}, modified.Data...)
	for i, row := range full {
		r := row
		if err := f.SetSheetRow(s.dataSheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	// Clear rows the modified dataset no longer covers
	for i := len(full); i < len(rows); i++ {
		if err := f.RemoveRow(s.dataSheet, len(full)+1); err != nil {
			return "", fmt.Errorf("failed to remove stale row: %w", err)
		}
	}

	if err := f.Save(); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	s.log.Infof("custom update applied to sheet %s (%d data rows)", s.dataSheet, len(modified.Data))
	return "Data modification successful, the sheet has been updated.", nil
}

// stripCodeFence unwraps a markdown-fenced block, models often wrap JSON in
// ```json ... ``` despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
