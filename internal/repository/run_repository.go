package repository

import (
	"sheetwatch/internal/models"

	"github.com/jmoiron/sqlx"
)

type RunRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) CreateRun(run *models.ValidationRun) error {
	query := `INSERT INTO validation_runs (run_code, user_id, workbook_path, status, result, error_count, summary)
	          VALUES (:run_code, :user_id, :workbook_path, :status, :result, :error_count, :summary)`
	result, err := r.db.NamedExec(query, run)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	run.ID = int(id)
	return nil
}

func (r *RunRepository) GetRunByID(id int) (*models.ValidationRun, error) {
	var run models.ValidationRun
	query := "SELECT * FROM validation_runs WHERE id = ? LIMIT 1"
	err := r.db.Get(&run, query, id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepository) GetRunByCode(code string) (*models.ValidationRun, error) {
	var run models.ValidationRun
	query := "SELECT * FROM validation_runs WHERE run_code = ? LIMIT 1"
	err := r.db.Get(&run, query, code)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRuns returns the runs page plus the total count. filterUserID 0 means
// all users (admin view).
func (r *RunRepository) GetRuns(limit, offset, filterUserID int) ([]models.ValidationRun, int, error) {
	var runs []models.ValidationRun
	var total int

	countQuery := "SELECT COUNT(*) FROM validation_runs"
	selectQuery := "SELECT * FROM validation_runs"

	args := []interface{}{}
	if filterUserID > 0 {
		countQuery += " WHERE user_id = ?"
		selectQuery += " WHERE user_id = ?"
		args = append(args, filterUserID)
	}

	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	selectQuery += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	if err := r.db.Select(&runs, selectQuery, args...); err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

func (r *RunRepository) UpdateRunStatus(id int, status string) error {
	query := "UPDATE validation_runs SET status = ? WHERE id = ?"
	_, err := r.db.Exec(query, status, id)
	return err
}

func (r *RunRepository) UpdateRun(run *models.ValidationRun) error {
	query := `UPDATE validation_runs SET status = :status, result = :result,
	          error_count = :error_count, summary = :summary WHERE id = :id`
	_, err := r.db.NamedExec(query, run)
	return err
}

func (r *RunRepository) BulkInsertErrors(runID int, errs []models.CheckError) error {
	if len(errs) == 0 {
		return nil
	}

	records := make([]models.RunError, 0, len(errs))
	for _, e := range errs {
		records = append(records, models.RunError{
			RunID:    runID,
			Action:   e.Action,
			Message:  e.Message,
			RuleCode: e.RuleCode,
		})
	}

	query := `INSERT INTO run_errors (run_id, action, message, rule_code)
	          VALUES (:run_id, :action, :message, :rule_code)`
	_, err := r.db.NamedExec(query, records)
	return err
}

func (r *RunRepository) GetErrorsByRun(runID, limit, offset int) ([]models.RunError, int, error) {
	var errs []models.RunError
	var total int

	if err := r.db.Get(&total, "SELECT COUNT(*) FROM run_errors WHERE run_id = ?", runID); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM run_errors WHERE run_id = ? ORDER BY id ASC LIMIT ? OFFSET ?"
	if err := r.db.Select(&errs, query, runID, limit, offset); err != nil {
		return nil, 0, err
	}

	return errs, total, nil
}

// GetAllErrorsByRun returns every error record of a run, used by the report
// export.
func (r *RunRepository) GetAllErrorsByRun(runID int) ([]models.RunError, error) {
	var errs []models.RunError
	query := "SELECT * FROM run_errors WHERE run_id = ? ORDER BY id ASC"
	err := r.db.Select(&errs, query, runID)
	return errs, err
}
