package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stellar/go/support/errors"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/chain"
)

// Invoker calls and transacts against a deployed contract.
type Invoker interface {
	Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error)
	Transact(ctx context.Context, method string, args ...interface{}) (*types.Receipt, error)
}

// Contract is a contract instance bound to an address.
type Contract struct {
	Name    string
	Address common.Address
	ABI     abi.ABI
	// DeployTx and DeployReceipt are only set on contracts created by Deploy.
	DeployTx      *types.Transaction
	DeployReceipt *types.Receipt

	client *chain.Client
	bound  *bind.BoundContract
}

// Deploy creates a new instance of artifact and waits until it is mined.
func Deploy(ctx context.Context, client *chain.Client, artifact *Artifact, args ...interface{}) (*Contract, error) {
	if len(artifact.Bin) == 0 {
		return nil, fmt.Errorf("contract %s has no bytecode", artifact.Name)
	}
	var (
		address common.Address
		bound   *bind.BoundContract
	)
	tx, err := client.Submit(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		var (
			tx  *types.Transaction
			err error
		)
		address, tx, bound, err = bind.DeployContract(opts, artifact.ABI, artifact.Bin, client.Backend(), args...)
		return tx, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not deploy %s", artifact.Name)
	}
	receipt, err := client.WaitForReceipt(ctx, tx)
	if err != nil {
		return nil, errors.Wrapf(err, "deployment of %s", artifact.Name)
	}
	if receipt.ContractAddress != (common.Address{}) {
		address = receipt.ContractAddress
	}
	return &Contract{
		Name:          artifact.Name,
		Address:       address,
		ABI:           artifact.ABI,
		DeployTx:      tx,
		DeployReceipt: receipt,
		client:        client,
		bound:         bound,
	}, nil
}

// Load binds an already deployed contract.
func Load(address common.Address, client *chain.Client, name string, parsed abi.ABI) *Contract {
	backend := client.Backend()
	return &Contract{
		Name:    name,
		Address: address,
		ABI:     parsed,
		client:  client,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}
}

// Method looks up an abi method by name.
func (c *Contract) Method(name string) (abi.Method, error) {
	method, ok := c.ABI.Methods[name]
	if !ok {
		return abi.Method{}, fmt.Errorf("contract %s has no method %s", c.Name, name)
	}
	return method, nil
}

// Call runs a read-only method and returns its unpacked outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: c.client.From()}
	if err := c.bound.Call(opts, &out, method, args...); err != nil {
		return nil, errors.Wrapf(err, "call %s.%s", c.Name, method)
	}
	return out, nil
}

// Transact sends a state-changing method and waits for its receipt.
func (c *Contract) Transact(ctx context.Context, method string, args ...interface{}) (*types.Receipt, error) {
	_, receipt, err := c.client.SubmitAndWait(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.bound.Transact(opts, method, args...)
	})
	if err != nil {
		return receipt, errors.Wrapf(err, "transact %s.%s", c.Name, method)
	}
	return receipt, nil
}
