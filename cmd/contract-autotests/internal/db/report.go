package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/stellar/go/support/db"
)

const (
	runsTableName        = "runs"
	caseResultsTableName = "case_results"
	stepsTableName       = "steps"
)

// Run, case and step statuses.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"

	StepPass = "pass"
	StepFail = "fail"
	StepInfo = "info"
)

// Timestamps are unix milliseconds.
type Run struct {
	ID         string `db:"id"`
	Suite      string `db:"suite"`
	NodeURL    string `db:"node_url"`
	ChainID    string `db:"chain_id"`
	Revision   string `db:"revision"`
	Status     string `db:"status"`
	Passed     int    `db:"passed"`
	Failed     int    `db:"failed"`
	Skipped    int    `db:"skipped"`
	StartedAt  int64  `db:"started_at"`
	FinishedAt int64  `db:"finished_at"`
}

type CaseResult struct {
	ID         string `db:"id"`
	RunID      string `db:"run_id"`
	Sequence   int    `db:"sequence"`
	Name       string `db:"name"`
	Kind       string `db:"kind"`
	ShowName   string `db:"show_name"`
	Author     string `db:"author"`
	Source     string `db:"source"`
	Row        int    `db:"row_index"`
	Status     string `db:"status"`
	Error      string `db:"error"`
	StartedAt  int64  `db:"started_at"`
	FinishedAt int64  `db:"finished_at"`
}

type Step struct {
	ID           string `db:"id"`
	CaseResultID string `db:"case_result_id"`
	Sequence     int    `db:"sequence"`
	Status       string `db:"status"`
	Message      string `db:"message"`
	CreatedAt    int64  `db:"created_at"`
}

// RunStep is a step joined with its case, as exported for a run.
type RunStep struct {
	CaseSequence int    `db:"case_sequence"`
	CaseName     string `db:"case_name"`
	ShowName     string `db:"show_name"`
	Author       string `db:"author"`
	Source       string `db:"source"`
	Row          int    `db:"row_index"`
	CaseStatus   string `db:"case_status"`
	Sequence     int    `db:"sequence"`
	Status       string `db:"status"`
	Message      string `db:"message"`
	CreatedAt    int64  `db:"created_at"`
}

type ReportReader interface {
	GetRuns(ctx context.Context, limit uint) ([]Run, error)
	GetRun(ctx context.Context, id string) (Run, bool, error)
	GetCaseResults(ctx context.Context, runID string) ([]CaseResult, error)
	GetCaseResult(ctx context.Context, id string) (CaseResult, bool, error)
	GetSteps(ctx context.Context, caseResultID string) ([]Step, error)
	GetRunSteps(ctx context.Context, runID string) ([]RunStep, error)
}

type reportReader struct {
	db db.SessionInterface
}

func NewReportReader(db db.SessionInterface) ReportReader {
	return reportReader{db: db}
}

var (
	runColumns = []string{
		"id", "suite", "node_url", "chain_id", "revision", "status",
		"passed", "failed", "skipped", "started_at", "finished_at",
	}
	caseResultColumns = []string{
		"id", "run_id", "sequence", "name", "kind", "show_name", "author",
		"source", "row_index", "status", "error", "started_at", "finished_at",
	}
	stepColumns = []string{"id", "case_result_id", "sequence", "status", "message", "created_at"}
)

// GetRuns returns the most recent runs first. A zero limit returns all of
// them.
func (r reportReader) GetRuns(ctx context.Context, limit uint) ([]Run, error) {
	sql := sq.Select(runColumns...).From(runsTableName).OrderBy("started_at desc", "id desc")
	if limit > 0 {
		sql = sql.Limit(uint64(limit))
	}
	var results []Run
	err := r.db.Select(ctx, &results, sql)
	return results, err
}

func (r reportReader) GetRun(ctx context.Context, id string) (Run, bool, error) {
	sql := sq.Select(runColumns...).From(runsTableName).Where(sq.Eq{"id": id})
	var results []Run
	if err := r.db.Select(ctx, &results, sql); err != nil {
		return Run{}, false, err
	}
	switch len(results) {
	case 0:
		return Run{}, false, nil
	case 1:
		return results[0], true, nil
	default:
		return Run{}, false, fmt.Errorf("multiple entries (%d) for run %s in table %q", len(results), id, runsTableName)
	}
}

// GetCaseResults returns the results of a run in submission order.
func (r reportReader) GetCaseResults(ctx context.Context, runID string) ([]CaseResult, error) {
	sql := sq.Select(caseResultColumns...).From(caseResultsTableName).
		Where(sq.Eq{"run_id": runID}).
		OrderBy("sequence asc")
	var results []CaseResult
	err := r.db.Select(ctx, &results, sql)
	return results, err
}

func (r reportReader) GetCaseResult(ctx context.Context, id string) (CaseResult, bool, error) {
	sql := sq.Select(caseResultColumns...).From(caseResultsTableName).Where(sq.Eq{"id": id})
	var results []CaseResult
	if err := r.db.Select(ctx, &results, sql); err != nil {
		return CaseResult{}, false, err
	}
	if len(results) == 0 {
		return CaseResult{}, false, nil
	}
	return results[0], true, nil
}

func (r reportReader) GetSteps(ctx context.Context, caseResultID string) ([]Step, error) {
	sql := sq.Select(stepColumns...).From(stepsTableName).
		Where(sq.Eq{"case_result_id": caseResultID}).
		OrderBy("sequence asc")
	var results []Step
	err := r.db.Select(ctx, &results, sql)
	return results, err
}

func (r reportReader) GetRunSteps(ctx context.Context, runID string) ([]RunStep, error) {
	sql := sq.Select(
		"c.sequence AS case_sequence",
		"c.name AS case_name",
		"c.show_name AS show_name",
		"c.author AS author",
		"c.source AS source",
		"c.row_index AS row_index",
		"c.status AS case_status",
		"s.sequence AS sequence",
		"s.status AS status",
		"s.message AS message",
		"s.created_at AS created_at",
	).
		From(stepsTableName+" s").
		Join(caseResultsTableName+" c ON c.id = s.case_result_id").
		Where(sq.Eq{"c.run_id": runID}).
		OrderBy("c.sequence asc", "s.sequence asc")
	var results []RunStep
	err := r.db.Select(ctx, &results, sql)
	return results, err
}

func (w writeTx) InsertRun(run Run) error {
	_, err := sq.StatementBuilder.RunWith(w.stmtCache).
		Insert(runsTableName).
		Columns(runColumns...).
		Values(run.ID, run.Suite, run.NodeURL, run.ChainID, run.Revision, run.Status,
			run.Passed, run.Failed, run.Skipped, run.StartedAt, run.FinishedAt).
		Exec()
	return err
}

// FinishRun stores the final status, counters and finish time of a run.
func (w writeTx) FinishRun(run Run) error {
	res, err := sq.StatementBuilder.RunWith(w.stmtCache).
		Update(runsTableName).
		SetMap(map[string]interface{}{
			"status":      run.Status,
			"passed":      run.Passed,
			"failed":      run.Failed,
			"skipped":     run.Skipped,
			"finished_at": run.FinishedAt,
		}).
		Where(sq.Eq{"id": run.ID}).
		Exec()
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

func (w writeTx) InsertCaseResult(result CaseResult) error {
	_, err := sq.StatementBuilder.RunWith(w.stmtCache).
		Insert(caseResultsTableName).
		Columns(caseResultColumns...).
		Values(result.ID, result.RunID, result.Sequence, result.Name, result.Kind, result.ShowName,
			result.Author, result.Source, result.Row, result.Status, result.Error,
			result.StartedAt, result.FinishedAt).
		Exec()
	return err
}

func (w writeTx) InsertStep(step Step) error {
	_, err := sq.StatementBuilder.RunWith(w.stmtCache).
		Insert(stepsTableName).
		Columns(stepColumns...).
		Values(step.ID, step.CaseResultID, step.Sequence, step.Status, step.Message, step.CreatedAt).
		Exec()
	return err
}
