package loadtest

import (
	"time"

	"github.com/spf13/pflag"
)

// Config represents the configuration of a load test against a node. NodeURL
// comes from the node-url option shared with the other commands.
type Config struct {
	NodeURL           string
	TestDuration      time.Duration
	SpecGenerator     string
	RequestsPerSecond int
	BatchInterval     time.Duration
	CallTo            string
	CallData          string
}

func (cfg *Config) AddFlags(flags *pflag.FlagSet) {
	flags.DurationVarP(&cfg.TestDuration, "duration", "d", 60*time.Second, "How long to generate load to the node")
	flags.StringVarP(&cfg.SpecGenerator, "spec-generator", "g", "blockNumber", "Which spec generator to use to generate load (blockNumber, chainId or call)")
	flags.IntVarP(&cfg.RequestsPerSecond, "requests-per-second", "n", 10, "How many requests per second to send to the node")
	flags.DurationVarP(&cfg.BatchInterval, "batch-interval", "i", 100*time.Millisecond, "How often to send a batch of requests")
	flags.StringVar(&cfg.CallTo, "call-to", "", "Contract address the call generator sends eth_call requests to")
	flags.StringVar(&cfg.CallData, "call-data", "0x", "Hex encoded calldata of the call generator requests")
}
