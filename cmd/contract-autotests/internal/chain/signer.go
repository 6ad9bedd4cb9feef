package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stellar/go/support/errors"
)

// GasProvider fixes the gas limit and price of outgoing transactions.
// Zero values leave estimation to the node.
type GasProvider struct {
	Limit uint64
	Price *big.Int
}

func (g GasProvider) apply(opts *bind.TransactOpts) {
	if g.Limit > 0 {
		opts.GasLimit = g.Limit
	}
	if g.Price != nil && g.Price.Sign() > 0 {
		opts.GasPrice = new(big.Int).Set(g.Price)
	}
}

// Signer signs transactions for a single account.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	gas     GasProvider
}

// NewSigner builds a signer from a hex encoded secp256k1 key. The 0x prefix
// is optional.
func NewSigner(hexKey string, chainID *big.Int, gas GasProvider) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}
	if chainID == nil {
		return nil, errors.New("chain id is required")
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).Set(chainID),
		gas:     gas,
	}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// TransactOpts returns fresh transaction options bound to ctx. The nonce is
// left unset so that it is fetched from the node at submission time.
func (s *Signer) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	s.gas.apply(opts)
	return opts, nil
}
