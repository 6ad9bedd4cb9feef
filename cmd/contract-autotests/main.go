package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/autotest"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/config"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/daemon"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/loadtest"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/logging"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/metrics"
)

func mustSetValues(cfg *config.Config) {
	if err := cfg.SetValues(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set values : %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	var cfg config.Config
	rootCmd := &cobra.Command{
		Use:   "contract-autotests",
		Short: "Data driven smart contract tests for EVM nodes",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the suite against the node and record the results",
		Run: func(_ *cobra.Command, _ []string) {
			mustSetValues(&cfg)
			registry := metrics.MakeRegistry()
			logger := logging.New(&cfg, registry)
			ctx, stop := signalContext()

			report, err := autotest.Run(ctx, &cfg, logger.Entry, registry, os.Stdout)
			stop()
			logger.Close() //nolint:errcheck
			if err != nil {
				fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
				os.Exit(1)
			}
			if !report.Passed() {
				os.Exit(1)
			}
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recorded runs over JSON RPC",
		Run: func(_ *cobra.Command, _ []string) {
			mustSetValues(&cfg)
			registry := metrics.MakeRegistry()
			logger := logging.New(&cfg, registry)
			defer logger.Close()
			daemon.MustNew(&cfg, logger.Entry, registry).Run(cfg.Endpoint, cfg.AdminEndpoint)
		},
	}

	var loadCfg loadtest.Config
	loadtestCmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Generate JSON RPC load against the node",
		Run: func(_ *cobra.Command, _ []string) {
			mustSetValues(&cfg)
			loadCfg.NodeURL = cfg.NodeURL
			ctx, stop := signalContext()
			defer stop()
			if _, err := loadtest.GenerateLoad(ctx, &loadCfg, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "could not generate load: %v\n", err)
				os.Exit(1)
			}
		},
	}
	loadCfg.AddFlags(loadtestCmd.Flags())

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as toml",
		Run: func(_ *cobra.Command, _ []string) {
			mustSetValues(&cfg)
			out, err := cfg.MarshalTOML()
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not marshal config: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(string(out))
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information and exit",
		Run: func(_ *cobra.Command, _ []string) {
			if config.CommitHash == "" {
				fmt.Printf("contract-autotests dev\n")
				return
			}
			// the branch is only interesting for builds off other branches
			branch := config.Branch
			if branch == "main" {
				branch = ""
			}
			fmt.Printf("contract-autotests %s (%s) %s\n", config.Version, config.CommitHash, branch)
		},
	}

	rootCmd.AddCommand(runCmd, serveCmd, loadtestCmd, configCmd, versionCmd)

	if err := cfg.Init(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "could not parse config options: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "could not run: %v\n", err)
		os.Exit(1)
	}
}
