package models

import (
	"fmt"
	"time"
)

// Published pass outcomes. The browser widget polls these values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Run lifecycle states stored in the runs table.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCanceled  = "canceled"
)

// CheckError is one detected data defect. Message carries the row/column
// provenance, RuleCode is the short dispatch code of the check that found it.
type CheckError struct {
	Action   string `json:"action"`
	Message  string `json:"message"`
	RuleCode string `json:"rule_code"`
}

// BackendMessage formats the error the way it is presented to the summarizer.
func (e CheckError) BackendMessage() string {
	return fmt.Sprintf("We performed the validation method '%s' to check %s. It failed because: %s",
		e.RuleCode, e.Action, e.Message)
}

type ValidationRun struct {
	ID           int       `db:"id" json:"id"`
	RunCode      string    `db:"run_code" json:"run_code"`
	UserID       int       `db:"user_id" json:"user_id"`
	WorkbookPath string    `db:"workbook_path" json:"workbook_path"`
	Status       string    `db:"status" json:"status"`
	Result       string    `db:"result" json:"result"`
	ErrorCount   int       `db:"error_count" json:"error_count"`
	Summary      string    `db:"summary" json:"summary"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type RunError struct {
	ID        int64     `db:"id" json:"id"`
	RunID     int       `db:"run_id" json:"run_id"`
	Action    string    `db:"action" json:"action"`
	Message   string    `db:"message" json:"message"`
	RuleCode  string    `db:"rule_code" json:"rule_code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
