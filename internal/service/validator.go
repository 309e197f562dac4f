package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sheetwatch/internal/models"

	"github.com/sirupsen/logrus"
)

// Summarizer turns a prompt describing the collected errors into a short
// user-facing explanation.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// ChatSink receives the summarizer's explanation for display.
type ChatSink interface {
	Forward(ctx context.Context, text string) error
}

// StatusSink receives the final pass outcome.
type StatusSink interface {
	SetStatus(ctx context.Context, status string) error
}

// ErrValidatorReused is returned when Run is called on an instance that has
// already completed a pass. A fresh Validator is constructed per run.
var ErrValidatorReused = errors.New("validator has already run, construct a new instance per pass")

type passState int

const (
	stateIdle passState = iota
	stateRunning
	stateReported
)

// CheckFunc is one registered validation routine. It receives the target
// column letters and the check-specific parameter string, and scans the
// loaded data rows.
type CheckFunc func(columns []string, params string)

// ValidatorConfig carries per-pass settings. Zero values fall back to the
// default workbook layout.
type ValidatorConfig struct {
	RulesSheet string
	DataSheet  string
	AITimeout  time.Duration
}

// Validator drives one validation pass: it loads the rule declarations,
// dispatches each declared rule to its check by exact code match,
// accumulates errors, escalates a non-empty error list to the summarizer
// and publishes the final status.
type Validator struct {
	source     RowSource
	summarizer Summarizer
	chat       ChatSink
	status     StatusSink
	log        *logrus.Logger

	rulesSheet string
	dataSheet  string
	aiTimeout  time.Duration

	checks  map[string]CheckFunc
	rows    [][]string
	errs    []models.CheckError
	summary string
	state   passState
}

func NewValidator(
	source RowSource,
	summarizer Summarizer,
	chat ChatSink,
	status StatusSink,
	cfg ValidatorConfig,
	log *logrus.Logger,
) *Validator {
	if cfg.RulesSheet == "" {
		cfg.RulesSheet = "Rules"
	}
	if cfg.DataSheet == "" {
		cfg.DataSheet = "Bin"
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 15 * time.Second
	}

	v := &Validator{
		source:     source,
		summarizer: summarizer,
		chat:       chat,
		status:     status,
		log:        log,
		rulesSheet: cfg.RulesSheet,
		dataSheet:  cfg.DataSheet,
		aiTimeout:  cfg.AITimeout,
	}

	// Dispatch table, keyed by the rule codes used in the Rules sheet.
	v.checks = map[string]CheckFunc{
		"wh":        v.checkWarehouse,
		"dup":       v.checkColumnDuplicates,
		"row_dup":   v.checkRowDuplicates,
		"bin_for":   v.checkBinFormat,
		"map_false": v.checkCombination,
	}

	return v
}

// Run executes the full pass and returns the accumulated errors. A fetch
// failure on either sheet aborts the pass; summarizer, forward and status
// publish failures are logged and never abort it.
func (v *Validator) Run(ctx context.Context) ([]models.CheckError, error) {
	if v.state != stateIdle {
		return nil, ErrValidatorReused
	}
	v.state = stateRunning

	rules, err := v.loadRules()
	if err != nil {
		return nil, err
	}

	dataRows, err := v.source.FetchRows(v.dataSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data rows: %w", err)
	}
	if len(dataRows) > 1 {
		v.rows = dataRows[1:] // Skip header row
	}

	for _, rule := range rules {
		// Honor cancellation between dispatches so individual checks
		// stay atomic.
		if err := ctx.Err(); err != nil {
			return v.errs, err
		}

		check, ok := v.checks[rule.Code]
		if !ok {
			v.log.Warnf("no validation function found for rule: %s", rule.Code)
			continue
		}
		check(rule.Columns, rule.Params)
	}

	if len(v.errs) > 0 {
		v.escalate(ctx)
	}

	v.reportStatus(ctx)
	v.state = stateReported

	return v.errs, nil
}

// Errors returns the errors recorded so far.
func (v *Validator) Errors() []models.CheckError {
	return v.errs
}

// Summary returns the summarizer's explanation, if one was obtained.
func (v *Validator) Summary() string {
	return v.summary
}

// loadRules fetches the Rules sheet and parses the declarations in order.
// The Rules sheet carries a schema/units row under the header, so the first
// two rows are skipped there (data sheets skip only the header).
func (v *Validator) loadRules() ([]models.RuleDeclaration, error) {
	rows, err := v.source.FetchRows(v.rulesSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rule declarations: %w", err)
	}
	if len(rows) <= 2 {
		return nil, nil
	}

	var rules []models.RuleDeclaration
	for i, row := range rows[2:] {
		if len(row) < 4 {
			v.log.Warnf("rule row %d is incomplete, skipping", i+3)
			continue
		}
		code := strings.TrimSpace(row[0])
		if code == "" {
			continue
		}
		rules = append(rules, models.RuleDeclaration{
			Code:        code,
			Description: row[1],
			Columns:     splitList(row[2]),
			Params:      row[3],
		})
	}

	return rules, nil
}

func (v *Validator) escalate(ctx context.Context) {
	if v.summarizer == nil {
		v.log.Warn("no summarizer configured, skipping error explanation")
		return
	}

	prompt := v.buildPrompt()
	v.log.Infof("sending %d validation errors to AI for analysis", len(v.errs))

	cctx, cancel := context.WithTimeout(ctx, v.aiTimeout)
	defer cancel()

	summary, err := v.summarizer.Summarize(cctx, prompt)
	if err != nil {
		v.log.WithError(err).Warn("summarizer request failed, continuing without explanation")
		return
	}
	v.summary = summary

	if err := v.chat.Forward(cctx, summary); err != nil {
		v.log.WithError(err).Warn("failed to forward AI response to chat")
	}
}

func (v *Validator) buildPrompt() string {
	var sb strings.Builder
	sb.WriteString("While validating the workbook we found some errors:\n\n")
	for _, e := range v.errs {
		sb.WriteString(e.BackendMessage())
		sb.WriteString("\n")
	}
	sb.WriteString("\nPlease generate a simple 2-3 line response for the users explaining what the error is. ")
	sb.WriteString("Keep it short, do not mention the function names, just what and where the issue is in the sheet.")
	return sb.String()
}

func (v *Validator) reportStatus(ctx context.Context) {
	status := models.StatusSuccess
	if len(v.errs) > 0 {
		status = models.StatusError
	}

	// Best-effort, at most one attempt per pass.
	if err := v.status.SetStatus(ctx, status); err != nil {
		v.log.WithError(err).Warnf("failed to report status %q", status)
		return
	}
	v.log.Infof("status reported: %s", status)
}

func (v *Validator) record(action, message, ruleCode string) {
	v.errs = append(v.errs, models.CheckError{
		Action:   action,
		Message:  message,
		RuleCode: ruleCode,
	})
	v.log.WithField("rule", ruleCode).Warn(message)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
