package methods

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
)

type HealthCheckResult struct {
	Status    string `json:"status"`
	LatestRun string `json:"latestRun,omitempty"`
}

// NewHealthCheck returns a health check json rpc handler
func NewHealthCheck(reader db.ReportReader) jrpc2.Handler {
	return handler.New(func(ctx context.Context) (HealthCheckResult, error) {
		runs, err := reader.GetRuns(ctx, 1)
		if err != nil {
			return HealthCheckResult{}, jrpc2.Error{
				Code:    jrpc2.InternalError,
				Message: err.Error(),
			}
		}
		result := HealthCheckResult{Status: "healthy"}
		if len(runs) > 0 {
			result.LatestRun = runs[0].ID
		}
		return result, nil
	})
}
