package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	supportlog "github.com/stellar/go/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/config"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/methods"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/metrics"
)

func TestDaemonServesReports(t *testing.T) {
	cfg := &config.Config{
		SQLiteDBPath:                     path.Join(t.TempDir(), "db.sqlite"),
		MaxConcurrentRequests:            8,
		RequestExecutionWarningThreshold: time.Second,
		MaxRequestExecutionDuration:      5 * time.Second,
	}
	session, err := db.OpenSQLiteDB(cfg.SQLiteDBPath)
	require.NoError(t, err)
	tx, err := db.NewReadWriter(session).NewTx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.InsertRun(db.Run{ID: "run-1", Suite: "suite.yaml", Status: db.StatusPassed, StartedAt: 10}))
	require.NoError(t, tx.Commit())

	registry := metrics.MakeNoOpRegistry()
	d := newDaemon(cfg, session, supportlog.New(), registry)
	defer func() { assert.NoError(t, d.Close()) }()
	assert.Same(t, registry, d.MetricsRegistry())

	server := httptest.NewServer(d)
	defer server.Close()

	client := jrpc2.NewClient(jhttp.NewChannel(server.URL, nil), nil)
	defer client.Close()
	var run methods.RunInfo
	require.NoError(t, client.CallResult(context.Background(), "getRun", methods.GetRunRequest{ID: "run-1"}, &run))
	assert.Equal(t, "suite.yaml", run.Suite)

	response, err := http.Get(server.URL + "/runs/run-1/export.csv")
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "text/csv", response.Header.Get("Content-Type"))

	recorder := httptest.NewRecorder()
	registry.HTTPHandler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(recorder.Body.String(), "contract_autotests_db_"))
}
