package methods

import (
	"github.com/creachadair/jrpc2"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
)

// Timestamps are unix milliseconds.
type RunInfo struct {
	ID         string `json:"id"`
	Suite      string `json:"suite"`
	NodeURL    string `json:"nodeUrl"`
	ChainID    string `json:"chainId"`
	Revision   string `json:"revision,omitempty"`
	Status     string `json:"status"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	StartedAt  int64  `json:"startedAt"`
	FinishedAt int64  `json:"finishedAt,omitempty"`
}

type CaseResultInfo struct {
	ID         string `json:"id"`
	RunID      string `json:"runId"`
	Sequence   int    `json:"sequence"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	ShowName   string `json:"showName,omitempty"`
	Author     string `json:"author,omitempty"`
	Source     string `json:"source,omitempty"`
	Row        int    `json:"row"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	StartedAt  int64  `json:"startedAt"`
	FinishedAt int64  `json:"finishedAt"`
}

type StepInfo struct {
	ID        string `json:"id"`
	Sequence  int    `json:"sequence"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"createdAt"`
}

func runInfo(run db.Run) RunInfo {
	return RunInfo{
		ID:         run.ID,
		Suite:      run.Suite,
		NodeURL:    run.NodeURL,
		ChainID:    run.ChainID,
		Revision:   run.Revision,
		Status:     run.Status,
		Passed:     run.Passed,
		Failed:     run.Failed,
		Skipped:    run.Skipped,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

func caseResultInfo(result db.CaseResult) CaseResultInfo {
	return CaseResultInfo{
		ID:         result.ID,
		RunID:      result.RunID,
		Sequence:   result.Sequence,
		Name:       result.Name,
		Kind:       result.Kind,
		ShowName:   result.ShowName,
		Author:     result.Author,
		Source:     result.Source,
		Row:        result.Row,
		Status:     result.Status,
		Error:      result.Error,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
}

func invalidParams(message string) error {
	return &jrpc2.Error{Code: jrpc2.InvalidParams, Message: message}
}

func notFound(what, id string) error {
	return &jrpc2.Error{Code: jrpc2.InvalidRequest, Message: what + " " + id + " not found"}
}

func internalError(err error) error {
	return &jrpc2.Error{Code: jrpc2.InternalError, Message: err.Error()}
}
