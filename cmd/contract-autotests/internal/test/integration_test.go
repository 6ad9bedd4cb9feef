// Package test holds the end to end tests which need a running node. They
// are skipped unless CONTRACT_AUTOTESTS_INTEGRATION_TESTS_ENABLED is set.
package test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stellar/go/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/autotest"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/chain/chaintest"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/config"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/loadtest"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/metrics"
)

const (
	enabledEnvVar    = "CONTRACT_AUTOTESTS_INTEGRATION_TESTS_ENABLED"
	nodeURLEnvVar    = "CONTRACT_AUTOTESTS_NODE_URL"
	privateKeyEnvVar = "CONTRACT_AUTOTESTS_PRIVATE_KEY"
	defaultNodeURL   = "http://localhost:8545"
)

type node struct {
	url        string
	privateKey string
}

func newNode(t *testing.T) node {
	if os.Getenv(enabledEnvVar) == "" {
		t.Skipf("skipping integration test: %s not set", enabledEnvVar)
	}
	n := node{url: os.Getenv(nodeURLEnvVar), privateKey: os.Getenv(privateKeyEnvVar)}
	if n.url == "" {
		n.url = defaultNodeURL
	}
	if n.privateKey == "" {
		t.Fatalf("%s must hold a funded key", privateKeyEnvVar)
	}
	return n
}

func TestStorageSuite(t *testing.T) {
	n := newNode(t)
	dir := fs.NewDir(t, "integration",
		fs.WithFile("suite.yaml", `
name: integration
cases:
  - name: Storage
    case: generic.Invoke
    source:
      file: storage.csv
    params:
      artifact: SimpleStorage
`),
		fs.WithDir("data", fs.WithFile("storage.csv", "method,args,expect\nstore,11,\nretrieve,,0\n")),
		fs.WithDir("contracts",
			fs.WithFile("SimpleStorage.abi", chaintest.SimpleStorageABI),
			fs.WithFile("SimpleStorage.bin", chaintest.SimpleStorageBin),
		),
	)
	cfg := &config.Config{
		NodeURL:             n.url,
		PrivateKey:          n.privateKey,
		SuitePath:           dir.Join("suite.yaml"),
		DataDir:             dir.Join("data"),
		ArtifactsDir:        dir.Join("contracts"),
		SQLiteDBPath:        dir.Join("db.sqlite"),
		ReportDir:           dir.Join("reports"),
		ReceiptTimeout:      2 * time.Minute,
		ReceiptPollInterval: time.Second,
		WorkerCount:         2,
		CaseTimeout:         5 * time.Minute,
	}

	var out bytes.Buffer
	rep, err := autotest.Run(context.Background(), cfg, log.New(), metrics.MakeNoOpRegistry(), &out)
	require.NoError(t, err)
	t.Log(out.String())
	assert.True(t, rep.Passed())
	assert.Equal(t, 2, rep.Run.Passed)
	assert.FileExists(t, filepath.Join(cfg.ReportDir, rep.Run.ID+".csv"))
}

func TestLoad(t *testing.T) {
	n := newNode(t)
	stats, err := loadtest.GenerateLoad(context.Background(), &loadtest.Config{
		NodeURL:           n.url,
		TestDuration:      time.Second,
		SpecGenerator:     "blockNumber",
		RequestsPerSecond: 20,
		BatchInterval:     200 * time.Millisecond,
	}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Zero(t, stats.Failed)
}
