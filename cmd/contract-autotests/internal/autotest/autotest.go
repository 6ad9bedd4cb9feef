// Package autotest wires the run command: it connects to the node, runs the
// suite and reports the results.
package autotest

import (
	"context"
	"io"
	"math/big"
	"strconv"

	dbsession "github.com/stellar/go/support/db"
	"github.com/stellar/go/support/errors"
	"github.com/stellar/go/support/log"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/cases"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/chain"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/collector"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/config"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/contracts"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/datasource"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/metrics"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/report"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/runner"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/suite"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/tracing"
)

// Node is a connection to the chain under test.
type Node struct {
	Backend chain.Backend
	// RPC is only needed by the min-node-version check.
	RPC chain.RPCCaller
}

// LoadSuite reads the suite manifest, keeps the cases selected by the cases
// option and checks every case kind is registered.
func LoadSuite(cfg *config.Config, registry *cases.Registry) (*suite.Suite, error) {
	s, err := suite.Load(cfg.SuitePath)
	if err != nil {
		return nil, err
	}
	s, err = s.Filter(cfg.Cases)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(registry.Has); err != nil {
		return nil, err
	}
	return s, nil
}

// Run dials the configured node and executes the suite on it.
func Run(ctx context.Context, cfg *config.Config, logger *log.Entry, registry *metrics.Registry, out io.Writer) (*runner.Report, error) {
	if err := cfg.Require("node-url", "private-key"); err != nil {
		return nil, err
	}
	backend, rpc, err := chain.Dial(ctx, cfg.NodeURL)
	if err != nil {
		return nil, err
	}
	return RunOn(ctx, cfg, Node{Backend: backend, RPC: rpc}, logger, registry, out)
}

// RunOn executes the suite on an established node connection, prints the
// summary to out and writes the exports when report-dir is set.
func RunOn(ctx context.Context, cfg *config.Config, node Node, logger *log.Entry, registry *metrics.Registry, out io.Writer) (*runner.Report, error) {
	caseRegistry := cases.Default()
	s, err := LoadSuite(cfg, caseRegistry)
	if err != nil {
		return nil, err
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, cfg.ReceiptTimeout)
	chainID, err := chain.WaitForNode(waitCtx, node.Backend, cfg.ReceiptPollInterval, logger)
	cancelWait()
	if err != nil {
		return nil, err
	}
	if err := chain.CheckChainID(chainID, cfg.ChainID); err != nil {
		return nil, err
	}
	if err := chain.CheckNodeVersion(ctx, node.RPC, cfg.MinNodeVersion); err != nil {
		return nil, err
	}

	signer, err := chain.NewSigner(cfg.PrivateKey, chainID, chain.GasProvider{
		Limit: cfg.GasLimit,
		Price: new(big.Int).SetUint64(cfg.GasPrice),
	})
	if err != nil {
		return nil, err
	}
	client := chain.NewClient(chain.ClientConfig{
		Backend:             node.Backend,
		RPC:                 node.RPC,
		Signer:              signer,
		ReceiptTimeout:      cfg.ReceiptTimeout,
		ReceiptPollInterval: cfg.ReceiptPollInterval,
		TxRateLimit:         cfg.TxRateLimit,
		Logger:              logger,
	})
	loader, err := contracts.NewLoader(cfg.ArtifactsDir, 0)
	if err != nil {
		return nil, err
	}

	revision, err := datasource.Revision(cfg.DataDir)
	if err != nil {
		logger.WithError(err).Warn("could not read the revision of the data directory")
	}

	session, err := db.OpenSQLiteDB(cfg.SQLiteDBPath)
	if err != nil {
		return nil, errors.Wrap(err, "could not open database")
	}
	dbConn := dbsession.RegisterMetrics(session, registry.Namespace(), "db", registry.Registry)
	defer dbConn.Close()
	readWriter := db.NewReadWriter(dbConn)

	sinks := []collector.Sink{
		collector.LogSink{Logger: logger},
		collector.StoreSink{DB: readWriter},
		collector.NewMetricsSink(registry.Registry, registry.Namespace()),
	}
	if cfg.StatsdAddress != "" {
		statsdClient, err := collector.NewStatsdClient(cfg.StatsdAddress)
		if err != nil {
			return nil, err
		}
		defer statsdClient.Close()
		sinks = append(sinks, collector.StatsdSink{Client: statsdClient, Logger: logger})
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.WithError(err).Warn("could not flush traces")
		}
	}()

	r := runner.New(runner.Config{
		Registry:    caseRegistry,
		Env:         cases.NewEnv(client, loader, logger),
		Provider:    datasource.NewProvider(cfg.DataDir),
		DB:          readWriter,
		Sinks:       sinks,
		WorkerCount: cfg.WorkerCount,
		CaseTimeout: cfg.CaseTimeout,
		FailFast:    cfg.FailFast,
		NodeURL:     cfg.NodeURL,
		ChainID:     strconv.FormatUint(chainID.Uint64(), 10),
		Revision:    revision,
		Logger:      logger,
		Metrics:     registry,
	})
	rep, err := r.Run(ctx, s)
	if err != nil {
		return nil, err
	}
	report.PrintSummary(out, rep)

	if cfg.ReportDir != "" {
		steps, err := db.NewReportReader(dbConn).GetRunSteps(ctx, rep.Run.ID)
		if err != nil {
			return rep, errors.Wrap(err, "could not read the run steps")
		}
		files, err := report.WriteFiles(cfg.ReportDir, rep.Run.ID, steps)
		if err != nil {
			return rep, err
		}
		for _, file := range files {
			logger.WithField("file", file).Info("run exported")
		}
	}
	return rep, nil
}
