package config

import (
	"encoding/hex"
	"fmt"
	"go/types"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
)

const defaultEnvFile = ".env"

func (cfg *Config) options() ConfigOptions {
	return ConfigOptions{
		{
			Name:         "config-path",
			EnvVar:       "CONTRACT_AUTOTESTS_CONFIG_PATH",
			TomlKey:      "-",
			Usage:        "File path to the toml configuration file",
			OptType:      types.String,
			ConfigKey:    &cfg.ConfigPath,
			DefaultValue: "",
		},
		{
			Name:         "config-strict",
			EnvVar:       "CONTRACT_AUTOTESTS_CONFIG_STRICT",
			TomlKey:      "STRICT",
			Usage:        "Enable strict toml configuration file parsing",
			OptType:      types.Bool,
			ConfigKey:    &cfg.Strict,
			DefaultValue: false,
		},
		{
			Name:         "env-file",
			EnvVar:       "CONTRACT_AUTOTESTS_ENV_FILE",
			TomlKey:      "-",
			Usage:        "dotenv file whose variables are exported before environment variables are read",
			OptType:      types.String,
			ConfigKey:    &cfg.EnvFile,
			DefaultValue: defaultEnvFile,
		},
		{
			Name:         "node-url",
			Usage:        "JSON RPC URL of the node the cases run against",
			OptType:      types.String,
			ConfigKey:    &cfg.NodeURL,
			DefaultValue: "",
		},
		{
			Name:         "chain-id",
			Usage:        "Expected chain id of the node. 0 (default) accepts whatever the node reports",
			OptType:      types.Uint,
			ConfigKey:    &cfg.ChainID,
			DefaultValue: uint(0),
		},
		{
			Name:         "private-key",
			Usage:        "hex encoded secp256k1 key used to sign deployments and transactions",
			OptType:      types.String,
			ConfigKey:    &cfg.PrivateKey,
			DefaultValue: "",
			Validate: func(co *ConfigOption) error {
				if cfg.PrivateKey == "" {
					return nil
				}
				raw, err := hex.DecodeString(strings.TrimPrefix(cfg.PrivateKey, "0x"))
				if err != nil {
					return fmt.Errorf("private-key is not hex encoded")
				}
				if len(raw) != 32 {
					return fmt.Errorf("private-key must be 32 bytes, got %d", len(raw))
				}
				return nil
			},
		},
		{
			Name:         "gas-limit",
			Usage:        "gas limit for every transaction. 0 (default) estimates it",
			OptType:      types.Uint,
			ConfigKey:    &cfg.GasLimit,
			DefaultValue: uint(0),
		},
		{
			Name:         "gas-price",
			Usage:        "gas price in wei for every transaction. 0 (default) lets the node suggest it",
			OptType:      types.Uint,
			ConfigKey:    &cfg.GasPrice,
			DefaultValue: uint(0),
		},
		{
			Name:         "receipt-timeout",
			Usage:        "maximum time to wait for a transaction receipt",
			OptType:      types.String,
			ConfigKey:    &cfg.ReceiptTimeout,
			DefaultValue: "2m",
		},
		{
			Name:         "receipt-poll-interval",
			Usage:        "interval between transaction receipt lookups",
			OptType:      types.String,
			ConfigKey:    &cfg.ReceiptPollInterval,
			DefaultValue: "1s",
			Validate: func(co *ConfigOption) error {
				if cfg.ReceiptPollInterval <= 0 {
					return fmt.Errorf("receipt-poll-interval must be positive")
				}
				if cfg.ReceiptPollInterval >= cfg.ReceiptTimeout {
					return fmt.Errorf(
						"receipt-poll-interval (%v) must be shorter than receipt-timeout (%v)",
						cfg.ReceiptPollInterval,
						cfg.ReceiptTimeout,
					)
				}
				return nil
			},
		},
		{
			Name:         "tx-rate-limit",
			Usage:        "maximum number of transactions submitted per second. 0 (default) disables the limit",
			OptType:      types.Uint,
			ConfigKey:    &cfg.TxRateLimit,
			DefaultValue: uint(0),
		},
		{
			Name:         "min-node-version",
			Usage:        "minimum client version (e.g. v1.13.0) the node must report through web3_clientVersion",
			OptType:      types.String,
			ConfigKey:    &cfg.MinNodeVersion,
			DefaultValue: "",
		},
		{
			Name:         "suite-path",
			Usage:        "path to the yaml suite manifest listing the cases to run",
			OptType:      types.String,
			ConfigKey:    &cfg.SuitePath,
			DefaultValue: "suite.yaml",
		},
		{
			Name:         "data-dir",
			Usage:        "directory holding the case spreadsheets, one sub directory per source prefix",
			OptType:      types.String,
			ConfigKey:    &cfg.DataDir,
			DefaultValue: "data",
		},
		{
			Name:         "artifacts-dir",
			Usage:        "directory holding compiled contracts (<Name>.json or <Name>.abi and <Name>.bin)",
			OptType:      types.String,
			ConfigKey:    &cfg.ArtifactsDir,
			DefaultValue: "contracts",
		},
		{
			Name:         "cases",
			Usage:        "comma-separated list of case name patterns to run. Empty (default) runs every case",
			OptType:      types.String,
			ConfigKey:    &cfg.Cases,
			DefaultValue: "",
		},
		{
			Name:         "worker-count",
			Usage:        "number of cases executed concurrently",
			OptType:      types.Uint,
			ConfigKey:    &cfg.WorkerCount,
			DefaultValue: uint(1),
			Validate: func(co *ConfigOption) error {
				if cfg.WorkerCount < 1 {
					return fmt.Errorf("worker-count must be > 0")
				}
				return nil
			},
		},
		{
			Name:         "case-timeout",
			Usage:        "deadline for a single case execution (one data row)",
			OptType:      types.String,
			ConfigKey:    &cfg.CaseTimeout,
			DefaultValue: "5m",
		},
		{
			Name:         "fail-fast",
			Usage:        "stop scheduling cases after the first failure",
			OptType:      types.Bool,
			ConfigKey:    &cfg.FailFast,
			DefaultValue: false,
		},
		{
			Name:         "db-path",
			Usage:        "SQLite DB path where run reports are stored",
			OptType:      types.String,
			ConfigKey:    &cfg.SQLiteDBPath,
			DefaultValue: "contract_autotests.sqlite",
		},
		{
			Name:         "report-dir",
			Usage:        "directory where parquet and csv exports of each run are written. \"\" (default) disables the exports",
			OptType:      types.String,
			ConfigKey:    &cfg.ReportDir,
			DefaultValue: "",
		},
		{
			Name:         "endpoint",
			Usage:        "Endpoint to listen and serve reports on",
			OptType:      types.String,
			ConfigKey:    &cfg.Endpoint,
			DefaultValue: "localhost:8000",
		},
		{
			Name:         "admin-endpoint",
			Usage:        "Admin endpoint to listen and serve on. WARNING: this should not be accessible from the Internet and does not use TLS. \"\" (default) disables the admin server",
			OptType:      types.String,
			ConfigKey:    &cfg.AdminEndpoint,
			DefaultValue: "",
		},
		{
			Name:         "max-concurrent-requests",
			Usage:        "Maximum number of JSON RPC requests served concurrently by the report endpoint",
			OptType:      types.Uint,
			ConfigKey:    &cfg.MaxConcurrentRequests,
			DefaultValue: uint(32),
		},
		{
			Name:         "request-execution-warning-threshold",
			Usage:        "JSON RPC requests running longer than this are logged as slow",
			OptType:      types.String,
			ConfigKey:    &cfg.RequestExecutionWarningThreshold,
			DefaultValue: "5s",
		},
		{
			Name:         "max-request-execution-duration",
			Usage:        "JSON RPC requests running longer than this are answered with an error",
			OptType:      types.String,
			ConfigKey:    &cfg.MaxRequestExecutionDuration,
			DefaultValue: "25s",
			Validate: func(co *ConfigOption) error {
				if cfg.MaxRequestExecutionDuration <= cfg.RequestExecutionWarningThreshold {
					return fmt.Errorf(
						"max-request-execution-duration (%v) must be longer than request-execution-warning-threshold (%v)",
						cfg.MaxRequestExecutionDuration,
						cfg.RequestExecutionWarningThreshold,
					)
				}
				return nil
			},
		},
		{
			Name:         "log-level",
			Usage:        "minimum log severity (debug, info, warn, error) to log",
			OptType:      types.String,
			ConfigKey:    &cfg.LogLevel,
			DefaultValue: "info",
			CustomSetValue: func(option *ConfigOption, i interface{}) error {
				switch v := i.(type) {
				case nil:
					return nil
				case string:
					ll, err := logrus.ParseLevel(v)
					if err != nil {
						return fmt.Errorf("could not parse %s: %q", option.Name, v)
					}
					cfg.LogLevel = ll
				case logrus.Level:
					cfg.LogLevel = v
				case *logrus.Level:
					cfg.LogLevel = *v
				default:
					return fmt.Errorf("could not parse %s: %q", option.Name, v)
				}
				return nil
			},
			MarshalTOML: func(option *ConfigOption) (interface{}, error) {
				return cfg.LogLevel.String(), nil
			},
		},
		{
			Name:         "log-format",
			Usage:        "format used for output logs (json or text)",
			OptType:      types.String,
			ConfigKey:    &cfg.LogFormat,
			DefaultValue: "text",
			CustomSetValue: func(option *ConfigOption, i interface{}) error {
				switch v := i.(type) {
				case nil:
					return nil
				case string:
					return cfg.LogFormat.UnmarshalText([]byte(v))
				case LogFormat:
					cfg.LogFormat = v
				case *LogFormat:
					cfg.LogFormat = *v
				default:
					return fmt.Errorf("could not parse %s: %q", option.Name, v)
				}
				return nil
			},
			MarshalTOML: func(option *ConfigOption) (interface{}, error) {
				return cfg.LogFormat.String(), nil
			},
		},
		{
			Name:         "log-file",
			Usage:        "file the logs are also written to, rotated once it grows past 100MB. \"\" (default) logs to stderr only",
			OptType:      types.String,
			ConfigKey:    &cfg.LogFile,
			DefaultValue: "",
		},
		{
			Name:         "statsd-address",
			Usage:        "host:port of a statsd agent receiving case and step counters. \"\" (default) disables it",
			OptType:      types.String,
			ConfigKey:    &cfg.StatsdAddress,
			DefaultValue: "",
		},
		{
			Name:         "otlp-endpoint",
			Usage:        "host:port of an OTLP/HTTP collector receiving case traces. \"\" (default) disables tracing",
			OptType:      types.String,
			ConfigKey:    &cfg.OTLPEndpoint,
			DefaultValue: "",
		},
	}
}

func Required(option *ConfigOption) error {
	if !reflect.ValueOf(option.ConfigKey).Elem().IsZero() {
		return nil
	}

	waysToSet := []string{}
	if option.Name != "" && option.Name != "-" {
		waysToSet = append(waysToSet, fmt.Sprintf("specify --%s on the command line", option.Name))
	}
	envVar := option.EnvVar
	if envVar == "" {
		envVar = strings.ToUpper(strings.ReplaceAll(option.Name, "-", "_"))
	}
	if envVar != "-" {
		waysToSet = append(waysToSet, fmt.Sprintf("set the %s environment variable", envVar))
	}
	if key, ok := option.getTomlKey(); ok {
		waysToSet = append(waysToSet, fmt.Sprintf("set %s in the config file", key))
	}

	advice := ""
	switch len(waysToSet) {
	case 1:
		advice = fmt.Sprintf(" Please %s.", waysToSet[0])
	case 2:
		advice = fmt.Sprintf(" Please %s or %s.", waysToSet[0], waysToSet[1])
	case 3:
		advice = fmt.Sprintf(" Please %s, %s, or %s.", waysToSet[0], waysToSet[1], waysToSet[2])
	}

	return fmt.Errorf("Invalid config: %s is required.%s", option.Name, advice)
}
