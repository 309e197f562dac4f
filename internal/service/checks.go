package service

import (
	"fmt"
	"regexp"
	"strings"
)

// Bin locations look like "AB-12-345": two uppercase letters, two digits,
// three digits.
var binPattern = regexp.MustCompile(`^[A-Z]{2}-\d{2}-\d{3}$`)

// columnIndex maps a column letter to its zero-based index (A -> 0).
func columnIndex(column string) (int, error) {
	column = strings.TrimSpace(column)
	if column == "" {
		return 0, fmt.Errorf("empty column reference")
	}
	c := column[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return 0, fmt.Errorf("invalid column reference %q", column)
	}
	return int(c - 'A'), nil
}

// checkWarehouse flags rows whose target column holds a value outside the
// allowed list given in the rule parameters.
func (v *Validator) checkWarehouse(columns []string, params string) {
	const action = "whether the warehouse column holds an allowed value"

	if len(columns) < 1 {
		v.log.Warn("warehouse check requires a target column, skipping rule")
		return
	}
	idx, err := columnIndex(columns[0])
	if err != nil {
		v.log.Warnf("warehouse check: %v, skipping rule", err)
		return
	}

	allowed := make(map[string]struct{})
	for _, val := range splitList(params) {
		allowed[val] = struct{}{}
	}

	for i, row := range v.rows {
		if len(row) <= idx {
			continue
		}
		if _, ok := allowed[row[idx]]; !ok {
			v.record(action,
				fmt.Sprintf("Row %d: Invalid value '%s' in Column %s.", i+2, row[idx], columns[0]),
				"wh")
		}
	}
}

// checkColumnDuplicates flags the second and later occurrences of a value
// within the target column. The first occurrence is not an error.
func (v *Validator) checkColumnDuplicates(columns []string, params string) {
	const action = "whether any duplicate values exist in the column"

	if len(columns) < 1 {
		v.log.Warn("duplicate check requires a target column, skipping rule")
		return
	}
	idx, err := columnIndex(columns[0])
	if err != nil {
		v.log.Warnf("duplicate check: %v, skipping rule", err)
		return
	}

	seen := make(map[string]struct{})
	for i, row := range v.rows {
		if len(row) <= idx {
			continue
		}
		value := row[idx]
		if _, ok := seen[value]; ok {
			v.record(action,
				fmt.Sprintf("Row %d: Duplicate value '%s' found in Column %s.", i+2, value, columns[0]),
				"dup")
			continue
		}
		seen[value] = struct{}{}
	}
}

// checkRowDuplicates flags any row whose full value tuple occurred earlier
// in the data set.
func (v *Validator) checkRowDuplicates(columns []string, params string) {
	const action = "whether any rows are repeated"

	seen := make(map[string]struct{})
	for i, row := range v.rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			v.record(action,
				fmt.Sprintf("Row %d: Duplicate row detected.", i+2),
				"row_dup")
			continue
		}
		seen[key] = struct{}{}
	}
}

// checkBinFormat flags values in the target column that do not match the
// bin location pattern.
func (v *Validator) checkBinFormat(columns []string, params string) {
	const action = "whether the values in the bin column match the required format"

	if len(columns) < 1 {
		v.log.Warn("bin format check requires a target column, skipping rule")
		return
	}
	idx, err := columnIndex(columns[0])
	if err != nil {
		v.log.Warnf("bin format check: %v, skipping rule", err)
		return
	}

	for i, row := range v.rows {
		if len(row) <= idx {
			continue
		}
		if !binPattern.MatchString(row[idx]) {
			v.record(action,
				fmt.Sprintf("Row %d: Invalid bin format '%s' in Column %s.", i+2, row[idx], columns[0]),
				"bin_for")
		}
	}
}

// checkCombination flags rows where the first column equals val1 AND the
// second equals val2 at the same time. The matching pair is the illegal
// state, this is a positive-match detector, not a consistency rule.
func (v *Validator) checkCombination(columns []string, params string) {
	const action = "whether the combination of values in the storage type and storage section columns is allowed"

	if len(columns) < 2 {
		v.log.Warn("combination check requires two target columns, skipping rule")
		return
	}
	idx1, err := columnIndex(columns[0])
	if err != nil {
		v.log.Warnf("combination check: %v, skipping rule", err)
		return
	}
	idx2, err := columnIndex(columns[1])
	if err != nil {
		v.log.Warnf("combination check: %v, skipping rule", err)
		return
	}

	pair := strings.SplitN(params, ",", 2)
	if len(pair) != 2 {
		v.log.Warnf("combination check requires a value pair, got %q, skipping rule", params)
		return
	}
	val1 := strings.TrimSpace(pair[0])
	val2 := strings.TrimSpace(pair[1])

	maxIdx := idx1
	if idx2 > maxIdx {
		maxIdx = idx2
	}

	for i, row := range v.rows {
		if len(row) <= maxIdx {
			continue
		}
		if row[idx1] == val1 && row[idx2] == val2 {
			v.record(action,
				fmt.Sprintf("Row %d: Invalid combination of '%s' and '%s' in Columns %s and %s.",
					i+2, val1, val2, columns[0], columns[1]),
				"map_false")
		}
	}
}
