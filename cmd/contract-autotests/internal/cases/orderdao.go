package cases

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/stellar/go/support/errors"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/collector"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/contracts"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/datasource"
)

const (
	KindOrderDao = "csdc.OrderDao"

	defaultOrderDaoArtifact = "OrderDao"

	ColumnRecord    = "record"
	ColumnBizID     = "biz_id"
	ColumnDelimiter = "delimiter"
)

// DefaultSecPledgeApply is the pledge application stored when the row has
// no record: "2-businessNo1-bizId1-4-5-...-40".
func DefaultSecPledgeApply() string {
	fields := []string{"2", "businessNo1", "bizId1"}
	for i := 4; i <= 40; i++ {
		fields = append(fields, strconv.Itoa(i))
	}
	return datasource.JoinComposite(datasource.DefaultDelimiter, fields...)
}

// orderDao stores a settlement pledge application and reads its business
// number back by id.
type orderDao struct{}

func (orderDao) Run(ctx context.Context, env *Env, row datasource.Row, c *collector.Collector) error {
	record := row.String(ColumnRecord, DefaultSecPledgeApply())
	composite, err := datasource.SplitComposite(record, row.String(ColumnDelimiter, datasource.DefaultDelimiter))
	if err != nil {
		return errors.Wrapf(err, "column %s", ColumnRecord)
	}
	bizID := row.String(ColumnBizID, composite.ID())

	artifact, err := loadArtifact(env, row, defaultOrderDaoArtifact)
	if err != nil {
		return err
	}
	deployment, err := deploy(ctx, env, row, artifact)
	if err != nil {
		return err
	}
	c.LogStepPass(fmt.Sprintf(
		"OrderDao deploy successfully.contractAddress:%s, hash:%s",
		deployment.Address.Hex(), deployment.Receipt.TxHash.Hex(),
	))

	dao := contracts.NewOrderDao(deployment)
	start := time.Now()
	receipt, err := dao.InsertSecPledgeApply(ctx, record)
	if err != nil {
		return err
	}
	c.LogStepPass(fmt.Sprintf("OrderDao insert_SecPledgeApply successfully hash:%s", receipt.TxHash.Hex()))

	businessNo, err := dao.SelectSecPledgeApplyByID(ctx, bizID)
	if err != nil {
		return err
	}
	c.LogStepPass(fmt.Sprintf("bizId:%s business_no:%s", bizID, businessNo))
	expect(row, c, "business_no", businessNo)

	c.LogStepInfo("insert and select took " + collector.Elapsed(time.Since(start)))
	return nil
}
