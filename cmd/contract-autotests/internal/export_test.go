package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stellar/go/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterExports(t *testing.T) {
	reader := newTestReader(t)
	handler, _ := newTestHandler(t, reader)
	router := NewRouter(handler, NewExportHandler(reader, log.New()))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/runs/run-1/export.csv", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "text/csv", recorder.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="run-1.csv"`, recorder.Header().Get("Content-Disposition"))
	assert.Contains(t, recorder.Body.String(), "case_sequence,case_name")
	assert.Contains(t, recorder.Body.String(), "name is VID as expected")

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/runs/run-1/export.parquet", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "PAR1", recorder.Body.String()[:4])

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/runs/run-9/export.csv", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/runs/run-1/export.xml", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
