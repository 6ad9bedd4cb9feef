package loadtest

import (
	"github.com/creachadair/jrpc2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// SpecGenerator produces the requests of a load test.
type SpecGenerator interface {
	GenerateSpec() (jrpc2.Spec, error)
}

// Generates eth_blockNumber requests. Useful as a baseline for load testing.
type BlockNumberGenerator struct{}

func (generator *BlockNumberGenerator) GenerateSpec() (jrpc2.Spec, error) {
	return jrpc2.Spec{Method: "eth_blockNumber"}, nil
}

type ChainIDGenerator struct{}

func (generator *ChainIDGenerator) GenerateSpec() (jrpc2.Spec, error) {
	return jrpc2.Spec{Method: "eth_chainId"}, nil
}

type callArgs struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// Generates read only eth_call requests against the latest block.
type CallGenerator struct {
	args callArgs
}

func NewCallGenerator(to, data string) (*CallGenerator, error) {
	if !common.IsHexAddress(to) {
		return nil, errors.Errorf("invalid contract address %q", to)
	}
	calldata, err := hexutil.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid calldata %q", data)
	}
	return &CallGenerator{args: callArgs{To: common.HexToAddress(to), Data: calldata}}, nil
}

func (generator *CallGenerator) GenerateSpec() (jrpc2.Spec, error) {
	return jrpc2.Spec{
		Method: "eth_call",
		Params: []interface{}{generator.args, "latest"},
	}, nil
}

func newGenerator(cfg *Config) (SpecGenerator, error) {
	switch cfg.SpecGenerator {
	case "blockNumber":
		return &BlockNumberGenerator{}, nil
	case "chainId":
		return &ChainIDGenerator{}, nil
	case "call":
		return NewCallGenerator(cfg.CallTo, cfg.CallData)
	}
	return nil, errors.Errorf("spec generator with name %s does not exist", cfg.SpecGenerator)
}
