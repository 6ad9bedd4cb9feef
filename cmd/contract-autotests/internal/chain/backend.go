package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stellar/go/support/errors"
)

// Backend is everything the harness needs from a node: deploying, calling
// and transacting through bound contracts, plus a few chain queries.
// Both *ethclient.Client and the simulated backend client satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// RPCCaller issues raw JSON RPC calls. It is only used for methods
// ethclient does not wrap, such as web3_clientVersion.
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Dial connects to the node at url.
func Dial(ctx context.Context, url string) (Backend, RPCCaller, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not dial %s", url)
	}
	return ethclient.NewClient(rpcClient), rpcClient, nil
}
