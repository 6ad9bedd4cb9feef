package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stellar/go/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryServesBuildInfoAndLogCounters(t *testing.T) {
	registry := MakeRegistry()
	assert.Equal(t, "contract_autotests", registry.Namespace())

	logger := log.New()
	logger.AddHook(registry.LogHook)
	logger.Warn("something")

	recorder := httptest.NewRecorder()
	registry.HTTPHandler.ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	body := recorder.Body.String()
	assert.Contains(t, body, "contract_autotests_build_info")
	assert.Contains(t, body, "contract_autotests_log_")
}

func TestNoOpRegistry(t *testing.T) {
	registry := MakeNoOpRegistry()
	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}
