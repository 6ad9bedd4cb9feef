package cases

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stellar/go/support/errors"
	"github.com/stellar/go/support/log"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/chain"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/collector"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/contracts"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/datasource"
)

const (
	ColumnArtifact        = "artifact"
	ColumnConstructorArgs = "constructor_args"
	expectPrefix          = "expect_"
)

// Chain deploys and binds contracts on behalf of the cases.
type Chain interface {
	Deploy(ctx context.Context, artifact *contracts.Artifact, args ...interface{}) (*Deployment, error)
	Bind(address common.Address, name string, parsed abi.ABI) contracts.Invoker
	From() common.Address
}

// Artifacts resolves compiled contracts by name.
type Artifacts interface {
	Load(name string) (*contracts.Artifact, error)
}

// Deployment is a contract created by a case.
type Deployment struct {
	Name    string
	Address common.Address
	Receipt *types.Receipt
	contracts.Invoker
}

// Env is the fixture shared by every case of a run.
type Env struct {
	Chain     Chain
	Artifacts Artifacts
	Logger    *log.Entry
}

func NewEnv(client *chain.Client, loader *contracts.Loader, logger *log.Entry) *Env {
	return &Env{
		Chain:     clientChain{client: client},
		Artifacts: loader,
		Logger:    logger,
	}
}

type clientChain struct {
	client *chain.Client
}

func (c clientChain) Deploy(ctx context.Context, artifact *contracts.Artifact, args ...interface{}) (*Deployment, error) {
	contract, err := contracts.Deploy(ctx, c.client, artifact, args...)
	if err != nil {
		return nil, err
	}
	return &Deployment{
		Name:    contract.Name,
		Address: contract.Address,
		Receipt: contract.DeployReceipt,
		Invoker: contract,
	}, nil
}

func (c clientChain) Bind(address common.Address, name string, parsed abi.ABI) contracts.Invoker {
	return contracts.Load(address, c.client, name, parsed)
}

func (c clientChain) From() common.Address {
	return c.client.From()
}

func loadArtifact(env *Env, row datasource.Row, def string) (*contracts.Artifact, error) {
	name := row.String(ColumnArtifact, def)
	if name == "" {
		return nil, errors.Errorf("column %s is required", ColumnArtifact)
	}
	return env.Artifacts.Load(name)
}

// deploy creates artifact with the constructor arguments of the row.
func deploy(ctx context.Context, env *Env, row datasource.Row, artifact *contracts.Artifact) (*Deployment, error) {
	raw, err := row.Args(ColumnConstructorArgs)
	if err != nil {
		return nil, err
	}
	constructor := artifact.ABI.Constructor
	if constructor.Name == "" {
		constructor.Name = "constructor"
	}
	args, err := contracts.ConvertArgs(constructor, raw)
	if err != nil {
		return nil, err
	}
	return env.Chain.Deploy(ctx, artifact, args...)
}

// expect checks actual against the expect_<name> column, when the row has
// one. A mismatch is logged as a failing step.
func expect(row datasource.Row, c *collector.Collector, name string, actual interface{}) {
	column := expectPrefix + name
	if !row.Has(column) {
		return
	}
	expected := row.String(column, "")
	if !contracts.ValueMatches(expected, actual) {
		c.LogStepFail(fmt.Sprintf("%s: expected %s, got %s", name, expected, contracts.FormatValue(actual)))
		return
	}
	c.LogStepPass(fmt.Sprintf("%s is %s as expected", name, expected))
}
