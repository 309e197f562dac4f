package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"sheetwatch/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	sheets map[string][][]string
	errs   map[string]error
}

func (s *fakeSource) FetchRows(sheetName string) ([][]string, error) {
	if err, ok := s.errs[sheetName]; ok {
		return nil, err
	}
	rows, ok := s.sheets[sheetName]
	if !ok {
		return nil, fmt.Errorf("sheet %s does not exist", sheetName)
	}
	return rows, nil
}

type fakeSummarizer struct {
	prompts  []string
	response string
	err      error
}

func (s *fakeSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type fakeChatSink struct {
	forwarded []string
	err       error
}

func (s *fakeChatSink) Forward(ctx context.Context, text string) error {
	if s.err != nil {
		return s.err
	}
	s.forwarded = append(s.forwarded, text)
	return nil
}

type fakeStatusSink struct {
	published []string
	err       error
}

func (s *fakeStatusSink) SetStatus(ctx context.Context, status string) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, status)
	return nil
}

// rulesRows builds a Rules sheet with a header and a units row on top.
func rulesRows(rules ...[]string) [][]string {
	rows := [][]string{
		{"Rule Code", "Description", "Columns", "Values"},
		{"(code)", "(text)", "(column letters)", "(comma separated)"},
	}
	return append(rows, rules...)
}

// dataRows prepends a header row to the given data rows.
func dataRows(rows ...[]string) [][]string {
	header := []string{"Warehouse", "SKU", "Bin", "Storage Type", "Storage Section"}
	return append([][]string{header}, rows...)
}

type validatorFixture struct {
	validator  *Validator
	summarizer *fakeSummarizer
	chat       *fakeChatSink
	status     *fakeStatusSink
	hook       *test.Hook
}

func newFixture(t *testing.T, sheets map[string][][]string) *validatorFixture {
	t.Helper()
	return newFixtureWithSource(t, &fakeSource{sheets: sheets})
}

func newFixtureWithSource(t *testing.T, source RowSource) *validatorFixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	summarizer := &fakeSummarizer{response: "Some cells look wrong, please review the sheet."}
	chat := &fakeChatSink{}
	status := &fakeStatusSink{}

	v := NewValidator(source, summarizer, chat, status, ValidatorConfig{
		AITimeout: time.Second,
	}, logger)

	return &validatorFixture{
		validator:  v,
		summarizer: summarizer,
		chat:       chat,
		status:     status,
		hook:       hook,
	}
}

func messages(errs []models.CheckError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Message)
	}
	return out
}

func TestRunUnknownRule(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"nope", "not a real rule", "A", ""},
		),
		"Bin": dataRows(
			[]string{"WH1", "SKU-1", "AA-01-001", "Bulk", "Rack"},
		),
	})

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)

	var diagnostics int
	for _, entry := range fx.hook.AllEntries() {
		if strings.Contains(entry.Message, "no validation function found for rule: nope") {
			diagnostics++
			assert.Equal(t, logrus.WarnLevel, entry.Level)
		}
	}
	assert.Equal(t, 1, diagnostics, "expected exactly one diagnostic for the unknown rule")

	// The pass still reports its status
	assert.Equal(t, []string{models.StatusSuccess}, fx.status.published)
}

func TestWarehouseCheck(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{
			name:     "value outside allowed set is flagged",
			value:    "WH9",
			expected: []string{"Row 3: Invalid value 'WH9' in Column A."},
		},
		{
			name:     "corrected value is not flagged",
			value:    "WH2",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, map[string][][]string{
				"Rules": rulesRows(
					[]string{"wh", "warehouse codes", "A", "WH1,WH2,WH3"},
				),
				"Bin": dataRows(
					[]string{"WH1", "SKU-1"},
					[]string{tt.value, "SKU-2"},
				),
			})

			errs, err := fx.validator.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, messagesOrNil(errs))
		})
	}
}

func messagesOrNil(errs []models.CheckError) []string {
	if len(errs) == 0 {
		return nil
	}
	return messages(errs)
}

func TestColumnDuplicateCheck(t *testing.T) {
	// Values A, B, A, C, B: only the repeats on data rows 3 and 5 are
	// flagged, which are table rows 4 and 6.
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"dup", "duplicate values", "B", ""},
		),
		"Bin": dataRows(
			[]string{"WH1", "A"},
			[]string{"WH1", "B"},
			[]string{"WH1", "A"},
			[]string{"WH1", "C"},
			[]string{"WH1", "B"},
		),
	})

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, errs, 2)
	assert.Equal(t, "Row 4: Duplicate value 'A' found in Column B.", errs[0].Message)
	assert.Equal(t, "Row 6: Duplicate value 'B' found in Column B.", errs[1].Message)
	for _, e := range errs {
		assert.Equal(t, "dup", e.RuleCode)
	}
}

func TestRowDuplicateCheck(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"row_dup", "repeated rows", "", ""},
		),
		"Bin": dataRows(
			[]string{"WH1", "SKU-1", "AA-01-001"},
			[]string{"WH2", "SKU-2", "AB-02-002"},
			[]string{"WH1", "SKU-1", "AA-01-001"},
		),
	})

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, errs, 1)
	assert.Equal(t, "Row 4: Duplicate row detected.", errs[0].Message)
}

func TestBinFormatCheck(t *testing.T) {
	tests := []struct {
		value   string
		flagged bool
	}{
		{"AB-12-345", false},
		{"AB-12-34", true},
		{"ab-12-345", true},
		{"AB1-2-345", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			fx := newFixture(t, map[string][][]string{
				"Rules": rulesRows(
					[]string{"bin_for", "bin format", "C", ""},
				),
				"Bin": dataRows(
					[]string{"WH1", "SKU-1", tt.value},
				),
			})

			errs, err := fx.validator.Run(context.Background())
			require.NoError(t, err)

			if tt.flagged {
				require.Len(t, errs, 1)
				assert.Equal(t, fmt.Sprintf("Row 2: Invalid bin format '%s' in Column C.", tt.value), errs[0].Message)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestCombinationCheck(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"map_false", "storage mapping", "D,E", "Bulk,Floor"},
		),
		"Bin": dataRows(
			[]string{"WH1", "SKU-1", "AA-01-001", "Bulk", "Floor"},
			[]string{"WH1", "SKU-2", "AB-02-002", "Bulk", "Rack"},
			[]string{"WH1", "SKU-3", "AC-03-003", "Loose", "Floor"},
		),
	})

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)

	// Only the matching pair is illegal
	require.Len(t, errs, 1)
	assert.Equal(t, "Row 2: Invalid combination of 'Bulk' and 'Floor' in Columns D and E.", errs[0].Message)
	assert.Equal(t, "map_false", errs[0].RuleCode)
}

func TestCombinationCheckMalformedParams(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"map_false", "storage mapping", "D,E", "Bulk"},
		),
		"Bin": dataRows(
			[]string{"WH1", "SKU-1", "AA-01-001", "Bulk", "Floor"},
		),
	})

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs, "a malformed value pair is a configuration defect, not a data defect")
}

func TestShortRowsAreSkipped(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"bin_for", "bin format", "C", ""},
		),
		"Bin": dataRows(
			[]string{"WH1"}, // no column C at all
			[]string{"WH1", "SKU-1", "bad"},
		),
	})

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, errs, 1)
	assert.Equal(t, "Row 3: Invalid bin format 'bad' in Column C.", errs[0].Message)
}

func TestRunSuccessEndToEnd(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"wh", "warehouse codes", "A", "WH1,WH2"},
			[]string{"dup", "duplicate values", "B", ""},
			[]string{"row_dup", "repeated rows", "", ""},
			[]string{"bin_for", "bin format", "C", ""},
			[]string{"map_false", "storage mapping", "D,E", "Bulk,Floor"},
		),
		"Bin": dataRows(
			[]string{"WH1", "SKU-1", "AA-01-001", "Bulk", "Rack"},
			[]string{"WH2", "SKU-2", "AB-02-010", "Loose", "Shelf"},
		),
	})

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, errs)

	assert.Equal(t, []string{models.StatusSuccess}, fx.status.published)
	assert.Empty(t, fx.summarizer.prompts, "summarizer must not be invoked on a clean pass")
	assert.Empty(t, fx.chat.forwarded)
}

func TestRunErrorEndToEnd(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"wh", "warehouse codes", "A", "WH1,WH2"},
			[]string{"bin_for", "bin format", "C", ""},
		),
		"Bin": dataRows(
			[]string{"WH9", "SKU-1", "AA-01-001"},
			[]string{"WH1", "SKU-2", "nope"},
		),
	})

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, errs, 2)

	// Errors keep declaration order
	assert.Equal(t, "wh", errs[0].RuleCode)
	assert.Equal(t, "bin_for", errs[1].RuleCode)

	// Status published exactly once, after the summarization step
	assert.Equal(t, []string{models.StatusError}, fx.status.published)

	// Summarizer invoked exactly once, with every recorded message
	require.Len(t, fx.summarizer.prompts, 1)
	for _, msg := range messages(errs) {
		assert.Contains(t, fx.summarizer.prompts[0], msg)
	}

	// Response forwarded exactly once
	assert.Equal(t, []string{fx.summarizer.response}, fx.chat.forwarded)
	assert.Equal(t, fx.summarizer.response, fx.validator.Summary())
}

func TestSummarizerFailureDoesNotBlockReporting(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"wh", "warehouse codes", "A", "WH1"},
		),
		"Bin": dataRows(
			[]string{"WH9"},
		),
	})
	fx.summarizer.err = errors.New("model unavailable")

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, errs, 1)

	assert.Empty(t, fx.chat.forwarded)
	assert.Empty(t, fx.validator.Summary())
	assert.Equal(t, []string{models.StatusError}, fx.status.published)
}

func TestForwardFailureDoesNotBlockReporting(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"wh", "warehouse codes", "A", "WH1"},
		),
		"Bin": dataRows(
			[]string{"WH9"},
		),
	})
	fx.chat.err = errors.New("chat sink down")

	_, err := fx.validator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{models.StatusError}, fx.status.published)
}

func TestStatusPublishFailureIsNotFatal(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"wh", "warehouse codes", "A", "WH1"},
		),
		"Bin": dataRows(
			[]string{"WH1"},
		),
	})
	fx.status.err = errors.New("sink down")

	_, err := fx.validator.Run(context.Background())
	require.NoError(t, err)
}

func TestValidatorIsSingleUse(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(),
		"Bin":   dataRows(),
	})

	_, err := fx.validator.Run(context.Background())
	require.NoError(t, err)

	_, err = fx.validator.Run(context.Background())
	assert.ErrorIs(t, err, ErrValidatorReused)

	// Only the first pass reported
	assert.Equal(t, []string{models.StatusSuccess}, fx.status.published)
}

func TestRulesSheetSkipsHeaderAndUnitsRows(t *testing.T) {
	// The first two Rules rows look like valid declarations but must be
	// treated as header/units rows.
	fx := newFixture(t, map[string][][]string{
		"Rules": {
			{"wh", "header row", "A", "WH1"},
			{"wh", "units row", "A", "WH1"},
			{"bin_for", "the only real rule", "C", ""},
		},
		"Bin": dataRows(
			[]string{"WH9", "SKU-1", "bad"},
		),
	})

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, errs, 1)
	assert.Equal(t, "bin_for", errs[0].RuleCode)
}

func TestIncompleteRuleRowIsSkipped(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"wh", "missing columns cell"},
			[]string{"bin_for", "bin format", "C", ""},
		),
		"Bin": dataRows(
			[]string{"WH1", "SKU-1", "bad"},
		),
	})

	errs, err := fx.validator.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, errs, 1)
	assert.Equal(t, "bin_for", errs[0].RuleCode)
}

func TestRulesFetchFailureIsFatal(t *testing.T) {
	source := &fakeSource{
		sheets: map[string][][]string{"Bin": dataRows()},
		errs:   map[string]error{"Rules": errors.New("workbook missing")},
	}
	fx := newFixtureWithSource(t, source)

	_, err := fx.validator.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch rule declarations")
	assert.Empty(t, fx.status.published, "an aborted pass must not report a status")
}

func TestDataFetchFailureIsFatal(t *testing.T) {
	source := &fakeSource{
		sheets: map[string][][]string{"Rules": rulesRows()},
		errs:   map[string]error{"Bin": errors.New("sheet missing")},
	}
	fx := newFixtureWithSource(t, source)

	_, err := fx.validator.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch data rows")
	assert.Empty(t, fx.status.published)
}

func TestCancellationBetweenDispatches(t *testing.T) {
	fx := newFixture(t, map[string][][]string{
		"Rules": rulesRows(
			[]string{"wh", "warehouse codes", "A", "WH1"},
		),
		"Bin": dataRows(
			[]string{"WH9"},
		),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.validator.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fx.status.published)
	assert.Empty(t, fx.summarizer.prompts)
}
