package cases

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stellar/go/support/errors"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/collector"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/contracts"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/datasource"
)

const (
	KindVIDToken = "evm.VIDToken"

	defaultTokenArtifact = "VIDToken"
	// ColumnOwner is the account whose balance is queried. It defaults to
	// the token contract itself.
	ColumnOwner = "owner"
)

// vidToken issues a token, reads its metadata and queries a balance
// through a second binding loaded by address.
type vidToken struct{}

func (vidToken) Run(ctx context.Context, env *Env, row datasource.Row, c *collector.Collector) error {
	artifact, err := loadArtifact(env, row, defaultTokenArtifact)
	if err != nil {
		return err
	}
	deployment, err := deploy(ctx, env, row, artifact)
	if err != nil {
		return err
	}

	token := contracts.NewToken(deployment)
	name, err := token.Name(ctx)
	if err != nil {
		return err
	}
	symbol, err := token.Symbol(ctx)
	if err != nil {
		return err
	}
	c.LogStepPass(fmt.Sprintf(
		"Token issued successfully.contractAddress:%s, hash:%s, tokenName:%s, symbol:%s",
		deployment.Address.Hex(), deployment.Receipt.TxHash.Hex(), name, symbol,
	))
	c.LogStepPass(fmt.Sprintf("deploy gas used:%d", deployment.Receipt.GasUsed))

	owner := deployment.Address
	if row.Has(ColumnOwner) {
		v := row.String(ColumnOwner, "")
		if !common.IsHexAddress(v) {
			return errors.Errorf("column %s: invalid address %q", ColumnOwner, v)
		}
		owner = common.HexToAddress(v)
	}
	loaded := contracts.NewToken(env.Chain.Bind(deployment.Address, artifact.Name, contracts.TokenABI()))
	balance, err := loaded.BalanceOf(ctx, owner)
	if err != nil {
		return err
	}
	c.LogStepPass("balanceOf:" + balance.String())

	expect(row, c, "name", name)
	expect(row, c, "symbol", symbol)
	expect(row, c, "balance", balance)
	return nil
}
