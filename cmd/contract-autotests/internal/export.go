package internal

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/stellar/go/support/log"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/report"
)

// ExportRoute is the chi pattern NewExportHandler is mounted on.
const ExportRoute = "/runs/{runID}/export.{format}"

// NewExportHandler serves the steps of a run as a parquet or csv download.
func NewExportHandler(reader db.ReportReader, logger *log.Entry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runID")
		format, err := report.ParseFormat(chi.URLParam(r, "format"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		_, ok, err := reader.GetRun(r.Context(), runID)
		if err != nil {
			logger.WithError(err).WithField("run", runID).Error("could not load run")
			http.Error(w, "could not load run", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, fmt.Sprintf("run %s not found", runID), http.StatusNotFound)
			return
		}
		steps, err := reader.GetRunSteps(r.Context(), runID)
		if err != nil {
			logger.WithError(err).WithField("run", runID).Error("could not load run steps")
			http.Error(w, "could not load run steps", http.StatusInternalServerError)
			return
		}
		var body bytes.Buffer
		if err := report.Export(&body, format, steps); err != nil {
			logger.WithError(err).WithField("run", runID).Error("could not export run")
			http.Error(w, "could not export run", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", runID+"."+string(format)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body.Bytes())
	}
}

// NewRouter routes the run exports and hands everything else to the JSON RPC
// handler.
func NewRouter(rpc http.Handler, export http.Handler) http.Handler {
	router := chi.NewMux()
	router.Method(http.MethodGet, ExportRoute, export)
	router.Handle("/", rpc)
	return router
}
