package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stellar/go/support/errors"
)

// Config represents the configuration of a contract-autotests process
type Config struct {
	ConfigPath string

	Strict bool

	EnvFile string

	NodeURL             string
	ChainID             uint64
	PrivateKey          string
	GasLimit            uint64
	GasPrice            uint64
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration
	TxRateLimit         uint
	MinNodeVersion      string

	SuitePath    string
	DataDir      string
	ArtifactsDir string
	Cases        []string
	WorkerCount  uint
	CaseTimeout  time.Duration
	FailFast     bool

	SQLiteDBPath string
	ReportDir    string

	Endpoint              string
	AdminEndpoint         string
	MaxConcurrentRequests uint

	RequestExecutionWarningThreshold time.Duration
	MaxRequestExecutionDuration      time.Duration

	LogFormat     LogFormat
	LogLevel      logrus.Level
	LogFile       string
	StatsdAddress string
	OTLPEndpoint  string
}

func (cfg *Config) Init(cmd *cobra.Command) error {
	return cfg.flags().Init(cmd)
}

// SetValues loads the configuration. Priority, lowest first: defaults,
// config file, env file, environment variables, cli flags.
func (cfg *Config) SetValues() error {
	// We start with the defaults
	if err := cfg.loadDefaults(); err != nil {
		return err
	}

	// Then we load from the cli flags and environment variables
	if err := cfg.loadFlags(); err != nil {
		return err
	}

	// If we specified a config file, we load that
	if cfg.ConfigPath != "" {
		// Merge in the config file flags
		if err := cfg.loadConfigPath(); err != nil {
			return err
		}

		// Load from cli flags and environment variables again, to overwrite what we
		// got from the config file
		if err := cfg.loadFlags(); err != nil {
			return err
		}
	}

	if cfg.EnvFile != "" {
		if err := cfg.loadEnvFile(); err != nil {
			return err
		}
		if err := cfg.loadFlags(); err != nil {
			return err
		}
	}

	return nil
}

// loadDefaults populates the config with default values
func (cfg *Config) loadDefaults() error {
	for _, option := range cfg.options() {
		if option.DefaultValue != nil {
			if err := option.setValue(option.DefaultValue); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadFlags populates the config with values from the cli flags and
// environment variables
func (cfg *Config) loadFlags() error {
	for _, option := range cfg.options() {
		if viper.IsSet(option.Name) {
			if err := option.setValue(viper.Get(option.Name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadConfigPath loads a new config from a toml file at the given path. Strict
// mode will return an error if there are any unknown toml variables set. Note,
// strict-mode can also be set by putting `STRICT=true` in the config.toml file
// itself.
func (cfg *Config) loadConfigPath() error {
	file, err := os.Open(cfg.ConfigPath)
	if err != nil {
		return err
	}
	defer file.Close()
	return parseToml(file, cfg.Strict, cfg)
}

// loadEnvFile exports the variables of a dotenv file into the process
// environment. Variables which are already set are left alone. A missing
// file is only an error when it is not the default one.
func (cfg *Config) loadEnvFile() error {
	if _, err := os.Stat(cfg.EnvFile); os.IsNotExist(err) {
		if cfg.EnvFile == defaultEnvFile {
			return nil
		}
		return errors.Errorf("env file %s does not exist", cfg.EnvFile)
	}
	return errors.Wrapf(godotenv.Load(cfg.EnvFile), "could not load env file %s", cfg.EnvFile)
}

func (cfg *Config) Validate() error {
	return cfg.options().Validate()
}

// Require checks that each of the named options has a non-zero value.
func (cfg *Config) Require(names ...string) error {
	options := cfg.options()
	for _, name := range names {
		option := options.byName(name)
		if option == nil {
			return errors.Errorf("unknown config option %s", name)
		}
		if err := Required(option); err != nil {
			return err
		}
	}
	return nil
}
