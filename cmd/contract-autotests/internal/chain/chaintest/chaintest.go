// Package chaintest runs an in-process chain for tests.
package chaintest

import (
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"
)

// SimpleStorage is a solc 0.8.30 build of
//
//	contract SimpleStorage {
//	    uint256 public value;
//	    function store(uint256 num) public { value = num; }
//	    function retrieve() public view returns (uint256) { return value; }
//	}
const (
	SimpleStorageABI = `[{"inputs":[],"name":"retrieve","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"num","type":"uint256"}],"name":"store","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[],"name":"value","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`
	SimpleStorageBin = `6080604052348015600e575f5ffd5b5060b780601a5f395ff3fe6080604052348015600e575f5ffd5b5060043610603a575f3560e01c80632e64cec114603e5780633fa4f2451460535780636057361d14605a575b5f5ffd5b5f545b60405190815260200160405180910390f35b60415f5481565b60696065366004606b565b5f55565b005b5f60208284031215607a575f5ffd5b503591905056fea2646970667358221220ddc4e8386ce650a1019c837f324cbb0164ab60be5ecaa5e1c7d6891c00476fb364736f6c634300081e0033`
)

// ChainID is the chain id of the simulated backend.
var ChainID = big.NewInt(1337)

type Chain struct {
	Backend *simulated.Backend
	Client  simulated.Client
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// HexKey is the funded account key in the form the config expects.
func (c *Chain) HexKey() string {
	return hex.EncodeToString(crypto.FromECDSA(c.Key))
}

// New starts a simulated chain with one funded account. Blocks are sealed
// every blockTime until the test ends.
func New(t testing.TB, blockTime time.Duration) *Chain {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey)

	balance, _ := new(big.Int).SetString("1000000000000000000000", 10)
	backend := simulated.NewBackend(types.GenesisAlloc{
		address: {Balance: balance},
	})

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(blockTime)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				backend.Commit()
			}
		}
	}()
	t.Cleanup(func() {
		close(done)
		<-stopped
		backend.Close()
	})

	return &Chain{
		Backend: backend,
		Client:  backend.Client(),
		Key:     key,
		Address: address,
	}
}
