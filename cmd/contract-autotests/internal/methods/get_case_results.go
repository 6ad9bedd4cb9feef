package methods

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
)

type GetCaseResultsRequest struct {
	RunID string `json:"runId"`
}

type GetCaseResultsResponse struct {
	Results []CaseResultInfo `json:"results"`
}

// NewGetCaseResultsHandler returns a json rpc handler listing the case
// results of a run in suite order.
func NewGetCaseResultsHandler(reader db.ReportReader) jrpc2.Handler {
	return handler.New(func(ctx context.Context, request GetCaseResultsRequest) (GetCaseResultsResponse, error) {
		if request.RunID == "" {
			return GetCaseResultsResponse{}, invalidParams("runId is required")
		}
		if _, ok, err := reader.GetRun(ctx, request.RunID); err != nil {
			return GetCaseResultsResponse{}, internalError(err)
		} else if !ok {
			return GetCaseResultsResponse{}, notFound("run", request.RunID)
		}
		results, err := reader.GetCaseResults(ctx, request.RunID)
		if err != nil {
			return GetCaseResultsResponse{}, internalError(err)
		}
		response := GetCaseResultsResponse{Results: make([]CaseResultInfo, 0, len(results))}
		for _, result := range results {
			response.Results = append(response.Results, caseResultInfo(result))
		}
		return response, nil
	})
}

type GetStepsRequest struct {
	CaseResultID string `json:"caseResultId"`
}

type GetStepsResponse struct {
	Case  CaseResultInfo `json:"case"`
	Steps []StepInfo     `json:"steps"`
}

// NewGetStepsHandler returns a json rpc handler fetching the steps logged by
// one case execution.
func NewGetStepsHandler(reader db.ReportReader) jrpc2.Handler {
	return handler.New(func(ctx context.Context, request GetStepsRequest) (GetStepsResponse, error) {
		if request.CaseResultID == "" {
			return GetStepsResponse{}, invalidParams("caseResultId is required")
		}
		result, ok, err := reader.GetCaseResult(ctx, request.CaseResultID)
		if err != nil {
			return GetStepsResponse{}, internalError(err)
		}
		if !ok {
			return GetStepsResponse{}, notFound("case result", request.CaseResultID)
		}
		steps, err := reader.GetSteps(ctx, request.CaseResultID)
		if err != nil {
			return GetStepsResponse{}, internalError(err)
		}
		response := GetStepsResponse{
			Case:  caseResultInfo(result),
			Steps: make([]StepInfo, 0, len(steps)),
		}
		for _, step := range steps {
			response.Steps = append(response.Steps, StepInfo{
				ID:        step.ID,
				Sequence:  step.Sequence,
				Status:    step.Status,
				Message:   step.Message,
				CreatedAt: step.CreatedAt,
			})
		}
		return response, nil
	})
}
