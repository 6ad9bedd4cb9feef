package methods

import (
	"context"
	"fmt"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
)

const (
	DefaultRunsLimit = 20
	MaxRunsLimit     = 200
)

type GetRunsRequest struct {
	Limit uint `json:"limit,omitempty"`
}

type GetRunsResponse struct {
	Runs []RunInfo `json:"runs"`
}

// NewGetRunsHandler returns a json rpc handler listing the most recent runs.
func NewGetRunsHandler(reader db.ReportReader) jrpc2.Handler {
	return handler.New(func(ctx context.Context, request GetRunsRequest) (GetRunsResponse, error) {
		limit := request.Limit
		if limit == 0 {
			limit = DefaultRunsLimit
		}
		if limit > MaxRunsLimit {
			return GetRunsResponse{}, invalidParams(fmt.Sprintf("limit must not exceed %d", MaxRunsLimit))
		}
		runs, err := reader.GetRuns(ctx, limit)
		if err != nil {
			return GetRunsResponse{}, internalError(err)
		}
		response := GetRunsResponse{Runs: make([]RunInfo, 0, len(runs))}
		for _, run := range runs {
			response.Runs = append(response.Runs, runInfo(run))
		}
		return response, nil
	})
}

type GetRunRequest struct {
	ID string `json:"id"`
}

// NewGetRunHandler returns a json rpc handler fetching a single run.
func NewGetRunHandler(reader db.ReportReader) jrpc2.Handler {
	return handler.New(func(ctx context.Context, request GetRunRequest) (RunInfo, error) {
		if request.ID == "" {
			return RunInfo{}, invalidParams("id is required")
		}
		run, ok, err := reader.GetRun(ctx, request.ID)
		if err != nil {
			return RunInfo{}, internalError(err)
		}
		if !ok {
			return RunInfo{}, notFound("run", request.ID)
		}
		return runInfo(run), nil
	})
}
