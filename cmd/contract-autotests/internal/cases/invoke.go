package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	supporterrors "github.com/stellar/go/support/errors"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/chain"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/collector"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/contracts"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/datasource"
)

const (
	KindInvoke = "generic.Invoke"

	ColumnAddress      = "address"
	ColumnMethod       = "method"
	ColumnArgs         = "args"
	ColumnMode         = "mode"
	ColumnExpect       = "expect"
	ColumnExpectStatus = "expect_status"

	ModeCall     = "call"
	ModeTransact = "transact"

	StatusSuccess  = "success"
	StatusReverted = "reverted"
)

// invoke calls one method of a contract per row. The contract is deployed
// first unless the row names an address.
//
// Columns: artifact, address, constructor_args, method, args, mode (call or
// transact, derived from the abi when empty), expect (call outputs,
// shell-style split) and expect_status (success or reverted).
type invoke struct{}

func (invoke) Run(ctx context.Context, env *Env, row datasource.Row, c *collector.Collector) error {
	artifact, err := loadArtifact(env, row, "")
	if err != nil {
		return err
	}
	methodName := row.String(ColumnMethod, "")
	if methodName == "" {
		return supporterrors.Errorf("column %s is required", ColumnMethod)
	}
	method, ok := artifact.ABI.Methods[methodName]
	if !ok {
		return supporterrors.Errorf("contract %s has no method %s", artifact.Name, methodName)
	}
	raw, err := row.Args(ColumnArgs)
	if err != nil {
		return err
	}
	args, err := contracts.ConvertArgs(method, raw)
	if err != nil {
		return err
	}

	var target contracts.Invoker
	if row.Has(ColumnAddress) {
		address := row.String(ColumnAddress, "")
		if !common.IsHexAddress(address) {
			return supporterrors.Errorf("column %s: invalid address %q", ColumnAddress, address)
		}
		target = env.Chain.Bind(common.HexToAddress(address), artifact.Name, artifact.ABI)
		c.LogStepInfo(fmt.Sprintf("using %s at %s", artifact.Name, common.HexToAddress(address).Hex()))
	} else {
		deployment, err := deploy(ctx, env, row, artifact)
		if err != nil {
			return err
		}
		c.LogStepPass(fmt.Sprintf(
			"%s deployed.contractAddress:%s, hash:%s, gas used:%d",
			artifact.Name, deployment.Address.Hex(), deployment.Receipt.TxHash.Hex(), deployment.Receipt.GasUsed,
		))
		target = deployment
	}

	mode := strings.ToLower(row.String(ColumnMode, ""))
	if mode == "" {
		mode = ModeTransact
		if method.IsConstant() {
			mode = ModeCall
		}
	}
	call := fmt.Sprintf("%s(%s)", methodName, strings.Join(raw, ", "))
	switch mode {
	case ModeCall:
		return invokeCall(ctx, target, row, c, call, methodName, args)
	case ModeTransact:
		return invokeTransact(ctx, target, row, c, call, methodName, args)
	default:
		return supporterrors.Errorf("column %s: unknown mode %q", ColumnMode, mode)
	}
}

func invokeCall(ctx context.Context, target contracts.Invoker, row datasource.Row, c *collector.Collector,
	call, method string, args []interface{}) error {
	out, err := target.Call(ctx, method, args...)
	if err != nil {
		return err
	}
	rendered := make([]string, len(out))
	for i, v := range out {
		rendered[i] = contracts.FormatValue(v)
	}
	c.LogStepPass(fmt.Sprintf("%s returned [%s]", call, strings.Join(rendered, " ")))

	if !row.Has(ColumnExpect) {
		return nil
	}
	expected, err := row.Args(ColumnExpect)
	if err != nil {
		return err
	}
	if len(expected) != len(out) {
		c.LogStepFail(fmt.Sprintf("%s returned %d values, expected %d", method, len(out), len(expected)))
		return nil
	}
	matched := true
	for i, e := range expected {
		if !contracts.ValueMatches(e, out[i]) {
			c.LogStepFail(fmt.Sprintf("%s output %d: expected %s, got %s", method, i, e, rendered[i]))
			matched = false
		}
	}
	if matched {
		c.LogStepPass(fmt.Sprintf("%s returned [%s] as expected", method, strings.Join(expected, " ")))
	}
	return nil
}

func invokeTransact(ctx context.Context, target contracts.Invoker, row datasource.Row, c *collector.Collector,
	call, method string, args []interface{}) error {
	expectStatus := strings.ToLower(row.String(ColumnExpectStatus, StatusSuccess))
	if expectStatus != StatusSuccess && expectStatus != StatusReverted {
		return supporterrors.Errorf("column %s: unknown status %q", ColumnExpectStatus, expectStatus)
	}

	receipt, err := target.Transact(ctx, method, args...)
	switch {
	case err != nil && expectStatus == StatusReverted && isRevert(err):
		msg := fmt.Sprintf("%s reverted as expected", call)
		if receipt != nil {
			msg += ", hash:" + receipt.TxHash.Hex()
		}
		c.LogStepPass(msg)
	case err != nil:
		return err
	case expectStatus == StatusReverted:
		c.LogStepFail(fmt.Sprintf("%s succeeded, expected a revert, hash:%s", call, receipt.TxHash.Hex()))
	default:
		c.LogStepPass(fmt.Sprintf("%s mined, hash:%s, gas used:%d", call, receipt.TxHash.Hex(), receipt.GasUsed))
	}
	return nil
}

// isRevert reports whether err comes from a reverted transaction, either
// mined with a failed status or rejected while estimating its gas.
func isRevert(err error) bool {
	return errors.Is(err, chain.ErrTransactionFailed) || strings.Contains(err.Error(), "execution reverted")
}
