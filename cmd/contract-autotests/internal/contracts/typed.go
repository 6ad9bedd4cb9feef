package contracts

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	//go:embed abi/Token.abi
	tokenABIJSON []byte
	//go:embed abi/OrderDao.abi
	orderDaoABIJSON []byte
)

// TokenABI is the erc20 subset the token cases rely on.
func TokenABI() abi.ABI {
	return mustParseABI(tokenABIJSON)
}

// OrderDaoABI is the abi of the settlement pledge application contract.
func OrderDaoABI() abi.ABI {
	return mustParseABI(orderDaoABIJSON)
}

func mustParseABI(data []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		panic(err)
	}
	return parsed
}

type Token struct {
	Invoker
}

func NewToken(inv Invoker) *Token {
	return &Token{Invoker: inv}
}

func (t *Token) Name(ctx context.Context) (string, error) {
	return callString(ctx, t.Invoker, "name")
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	return callString(ctx, t.Invoker, "symbol")
}

func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := t.Call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return single[*big.Int]("balanceOf", out)
}

type OrderDao struct {
	Invoker
}

func NewOrderDao(inv Invoker) *OrderDao {
	return &OrderDao{Invoker: inv}
}

// InsertSecPledgeApply stores a dash separated pledge application record.
func (o *OrderDao) InsertSecPledgeApply(ctx context.Context, record string) (*types.Receipt, error) {
	return o.Transact(ctx, "insert_SecPledgeApply", record)
}

// SelectSecPledgeApplyByID returns the business number stored for bizID.
func (o *OrderDao) SelectSecPledgeApplyByID(ctx context.Context, bizID string) (string, error) {
	return callString(ctx, o.Invoker, "select_SecPledgeApply_byId", bizID)
}

func callString(ctx context.Context, inv Invoker, method string, args ...interface{}) (string, error) {
	out, err := inv.Call(ctx, method, args...)
	if err != nil {
		return "", err
	}
	return single[string](method, out)
}

func single[T any](method string, out []interface{}) (T, error) {
	var zero T
	if len(out) != 1 {
		return zero, fmt.Errorf("%s returned %d values, expected 1", method, len(out))
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s returned %T, expected %T", method, out[0], zero)
	}
	return v, nil
}
