package cases

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stellar/go/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/collector"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/contracts"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/datasource"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
)

var (
	deployedAddress = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	deployHash      = common.HexToHash("0x01")
)

type invocation struct {
	method string
	args   []interface{}
}

type fakeInvoker struct {
	mu       sync.Mutex
	calls    []invocation
	results  map[string][]interface{}
	receipts map[string]*types.Receipt
	errs     map[string]error
}

func (f *fakeInvoker) Call(_ context.Context, method string, args ...interface{}) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invocation{method, args})
	if err := f.errs[method]; err != nil {
		return nil, err
	}
	return f.results[method], nil
}

func (f *fakeInvoker) Transact(_ context.Context, method string, args ...interface{}) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invocation{method, args})
	if err := f.errs[method]; err != nil {
		return nil, err
	}
	return f.receipts[method], nil
}

func (f *fakeInvoker) argsOf(method string) []interface{} {
	for _, call := range f.calls {
		if call.method == method {
			return call.args
		}
	}
	return nil
}

type fakeChain struct {
	invoker    *fakeInvoker
	deployed   []string
	deployArgs [][]interface{}
	bound      []common.Address
	deployErr  error
}

func (f *fakeChain) Deploy(_ context.Context, artifact *contracts.Artifact, args ...interface{}) (*Deployment, error) {
	if f.deployErr != nil {
		return nil, f.deployErr
	}
	f.deployed = append(f.deployed, artifact.Name)
	f.deployArgs = append(f.deployArgs, args)
	return &Deployment{
		Name:    artifact.Name,
		Address: deployedAddress,
		Receipt: &types.Receipt{TxHash: deployHash, GasUsed: 1234, Status: types.ReceiptStatusSuccessful},
		Invoker: f.invoker,
	}, nil
}

func (f *fakeChain) Bind(address common.Address, _ string, _ abi.ABI) contracts.Invoker {
	f.bound = append(f.bound, address)
	return f.invoker
}

func (f *fakeChain) From() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000f0")
}

type fakeArtifacts map[string]*contracts.Artifact

func (f fakeArtifacts) Load(name string) (*contracts.Artifact, error) {
	artifact, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("could not load contract %s", name)
	}
	return artifact, nil
}

func newFakeEnv(invoker *fakeInvoker) (*Env, *fakeChain) {
	fc := &fakeChain{invoker: invoker}
	return &Env{
		Chain: fc,
		Artifacts: fakeArtifacts{
			"VIDToken": {Name: "VIDToken", ABI: contracts.TokenABI(), Bin: []byte{0x60, 0x80}},
			"OrderDao": {Name: "OrderDao", ABI: contracts.OrderDaoABI(), Bin: []byte{0x60, 0x80}},
		},
		Logger: log.New(),
	}, fc
}

func messages(c *collector.Collector) []string {
	var out []string
	for _, step := range c.Result().Steps {
		out = append(out, step.Status+": "+step.Message)
	}
	return out
}

func newTestCollector(kind string) *collector.Collector {
	return collector.New(collector.Meta{RunID: "run", Name: kind, Kind: kind})
}

func TestRegistry(t *testing.T) {
	registry := Default()
	assert.Equal(t, []string{KindOrderDao, KindVIDToken, KindInvoke}, registry.Kinds())
	assert.True(t, registry.Has("evm.VIDToken"))
	assert.False(t, registry.Has("evm.Unknown"))

	c, err := registry.New(KindInvoke)
	require.NoError(t, err)
	assert.IsType(t, invoke{}, c)

	_, err = registry.New("evm.Unknown")
	assert.EqualError(t, err, `unknown case kind "evm.Unknown"`)

	assert.Panics(t, func() {
		registry.Register(KindInvoke, func() Case { return invoke{} })
	})

	called := false
	registry.Register("custom", func() Case {
		return CaseFunc(func(context.Context, *Env, datasource.Row, *collector.Collector) error {
			called = true
			return nil
		})
	})
	custom, err := registry.New("custom")
	require.NoError(t, err)
	require.NoError(t, custom.Run(context.Background(), nil, datasource.Row{}, nil))
	assert.True(t, called)
}

func TestVIDToken(t *testing.T) {
	invoker := &fakeInvoker{results: map[string][]interface{}{
		"name":      {"VID Token"},
		"symbol":    {"VID"},
		"balanceOf": {big.NewInt(1000)},
	}}
	env, fc := newFakeEnv(invoker)
	row := datasource.NewRow(2, map[string]string{
		"expect_symbol":  "VID",
		"expect_balance": "999",
	})
	c := newTestCollector(KindVIDToken)

	require.NoError(t, vidToken{}.Run(context.Background(), env, row, c))

	assert.Equal(t, []string{"VIDToken"}, fc.deployed)
	assert.Empty(t, fc.deployArgs[0])
	assert.Equal(t, []common.Address{deployedAddress}, fc.bound)
	assert.Equal(t, []interface{}{deployedAddress}, invoker.argsOf("balanceOf"))
	assert.Equal(t, []string{
		db.StepPass + ": Token issued successfully.contractAddress:" + deployedAddress.Hex() +
			", hash:" + deployHash.Hex() + ", tokenName:VID Token, symbol:VID",
		db.StepPass + ": deploy gas used:1234",
		db.StepPass + ": balanceOf:1000",
		db.StepPass + ": symbol is VID as expected",
		db.StepFail + ": balance: expected 999, got 1000",
	}, messages(c))
	assert.True(t, c.Failed())
}

func TestVIDTokenOwnerColumn(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000b0")
	invoker := &fakeInvoker{results: map[string][]interface{}{
		"name":      {"VID Token"},
		"symbol":    {"VID"},
		"balanceOf": {big.NewInt(0)},
	}}
	env, _ := newFakeEnv(invoker)

	c := newTestCollector(KindVIDToken)
	row := datasource.NewRow(2, map[string]string{"owner": owner.Hex(), "expect_balance": "0"})
	require.NoError(t, vidToken{}.Run(context.Background(), env, row, c))
	assert.Equal(t, []interface{}{owner}, invoker.argsOf("balanceOf"))
	assert.False(t, c.Failed())

	row = datasource.NewRow(3, map[string]string{"owner": "nobody"})
	err := vidToken{}.Run(context.Background(), env, row, newTestCollector(KindVIDToken))
	assert.EqualError(t, err, `column owner: invalid address "nobody"`)
	// the error carries the stack of the failing case
	assert.Contains(t, fmt.Sprintf("%+v", err), "vidtoken.go")
}

func TestVIDTokenErrors(t *testing.T) {
	invoker := &fakeInvoker{errs: map[string]error{"name": errors.New("call VIDToken.name: execution reverted")}}
	env, fc := newFakeEnv(invoker)

	err := vidToken{}.Run(context.Background(), env, datasource.NewRow(0, nil), newTestCollector(KindVIDToken))
	assert.EqualError(t, err, "call VIDToken.name: execution reverted")

	row := datasource.NewRow(0, map[string]string{"artifact": "Missing"})
	err = vidToken{}.Run(context.Background(), env, row, newTestCollector(KindVIDToken))
	assert.EqualError(t, err, "could not load contract Missing")

	row = datasource.NewRow(0, map[string]string{"constructor_args": "1"})
	err = vidToken{}.Run(context.Background(), env, row, newTestCollector(KindVIDToken))
	assert.EqualError(t, err, "constructor takes 0 arguments, got 1")

	fc.deployErr = errors.New("could not deploy VIDToken: insufficient funds")
	err = vidToken{}.Run(context.Background(), env, datasource.NewRow(0, nil), newTestCollector(KindVIDToken))
	assert.EqualError(t, err, "could not deploy VIDToken: insufficient funds")
}

func TestDefaultSecPledgeApply(t *testing.T) {
	record := DefaultSecPledgeApply()
	assert.True(t, strings.HasPrefix(record, "2-businessNo1-bizId1-4-5-6-"))
	assert.True(t, strings.HasSuffix(record, "-38-39-40"))
	assert.Len(t, strings.Split(record, "-"), 40)
}

func TestOrderDaoDefaults(t *testing.T) {
	insertHash := common.HexToHash("0x02")
	invoker := &fakeInvoker{
		results: map[string][]interface{}{
			"select_SecPledgeApply_byId": {"businessNo1"},
		},
		receipts: map[string]*types.Receipt{
			"insert_SecPledgeApply": {TxHash: insertHash, Status: types.ReceiptStatusSuccessful},
		},
	}
	env, fc := newFakeEnv(invoker)
	c := newTestCollector(KindOrderDao)

	require.NoError(t, orderDao{}.Run(context.Background(), env, datasource.NewRow(0, nil), c))

	assert.Equal(t, []string{"OrderDao"}, fc.deployed)
	assert.Equal(t, []interface{}{DefaultSecPledgeApply()}, invoker.argsOf("insert_SecPledgeApply"))
	assert.Equal(t, []interface{}{"2"}, invoker.argsOf("select_SecPledgeApply_byId"))

	steps := messages(c)
	require.Len(t, steps, 4)
	assert.Equal(t, db.StepPass+": OrderDao deploy successfully.contractAddress:"+deployedAddress.Hex()+", hash:"+deployHash.Hex(), steps[0])
	assert.Equal(t, db.StepPass+": OrderDao insert_SecPledgeApply successfully hash:"+insertHash.Hex(), steps[1])
	assert.Equal(t, db.StepPass+": bizId:2 business_no:businessNo1", steps[2])
	assert.True(t, strings.HasPrefix(steps[3], db.StepInfo+": insert and select took "))
	assert.False(t, c.Failed())
}

func TestOrderDaoRowColumns(t *testing.T) {
	invoker := &fakeInvoker{
		results: map[string][]interface{}{
			"select_SecPledgeApply_byId": {"bn7"},
		},
		receipts: map[string]*types.Receipt{
			"insert_SecPledgeApply": {TxHash: common.HexToHash("0x03")},
		},
	}
	env, _ := newFakeEnv(invoker)
	c := newTestCollector(KindOrderDao)
	row := datasource.NewRow(4, map[string]string{
		"record":             "7|bn7|biz7",
		"delimiter":          "|",
		"expect_business_no": "bn8",
	})

	require.NoError(t, orderDao{}.Run(context.Background(), env, row, c))
	assert.Equal(t, []interface{}{"7|bn7|biz7"}, invoker.argsOf("insert_SecPledgeApply"))
	assert.Equal(t, []interface{}{"7"}, invoker.argsOf("select_SecPledgeApply_byId"))
	assert.True(t, c.Failed())
	assert.Contains(t, messages(c), db.StepFail+": business_no: expected bn8, got bn7")

	// an explicit id wins over the one of the record
	invoker.calls = nil
	row = datasource.NewRow(5, map[string]string{"record": "7-bn7", "biz_id": "9", "expect_business_no": "bn7"})
	c = newTestCollector(KindOrderDao)
	require.NoError(t, orderDao{}.Run(context.Background(), env, row, c))
	assert.Equal(t, []interface{}{"9"}, invoker.argsOf("select_SecPledgeApply_byId"))
	assert.False(t, c.Failed())
}

func TestOrderDaoTransactError(t *testing.T) {
	invoker := &fakeInvoker{errs: map[string]error{
		"insert_SecPledgeApply": errors.New("transact OrderDao.insert_SecPledgeApply: transaction failed"),
	}}
	env, _ := newFakeEnv(invoker)
	c := newTestCollector(KindOrderDao)

	err := orderDao{}.Run(context.Background(), env, datasource.NewRow(0, nil), c)
	assert.EqualError(t, err, "transact OrderDao.insert_SecPledgeApply: transaction failed")
	assert.Empty(t, invoker.argsOf("select_SecPledgeApply_byId"))
	assert.Len(t, c.Result().Steps, 1)
}
