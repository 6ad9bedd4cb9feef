package chain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	supporterrors "github.com/stellar/go/support/errors"
	"github.com/stellar/go/support/log"
	"golang.org/x/time/rate"
)

// ErrTransactionFailed is returned, together with the receipt, when a
// transaction was mined but reverted.
var ErrTransactionFailed = errors.New("transaction failed")

const (
	defaultReceiptTimeout      = 2 * time.Minute
	defaultReceiptPollInterval = time.Second
)

type ClientConfig struct {
	Backend             Backend
	RPC                 RPCCaller
	Signer              *Signer
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration
	// TxRateLimit caps submitted transactions per second. 0 disables it.
	TxRateLimit uint
	Logger      *log.Entry
}

// Client submits transactions on behalf of a signer and waits for their
// receipts. Submissions are serialized so that every transaction picks up
// the pending nonce left by the previous one; receipts are awaited
// concurrently.
type Client struct {
	backend             Backend
	rpc                 RPCCaller
	signer              *Signer
	receiptTimeout      time.Duration
	receiptPollInterval time.Duration
	limiter             *rate.Limiter
	logger              *log.Entry

	submitMu sync.Mutex
}

func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		backend:             cfg.Backend,
		rpc:                 cfg.RPC,
		signer:              cfg.Signer,
		receiptTimeout:      cfg.ReceiptTimeout,
		receiptPollInterval: cfg.ReceiptPollInterval,
		logger:              cfg.Logger,
	}
	if c.receiptTimeout <= 0 {
		c.receiptTimeout = defaultReceiptTimeout
	}
	if c.receiptPollInterval <= 0 {
		c.receiptPollInterval = defaultReceiptPollInterval
	}
	if cfg.TxRateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.TxRateLimit), 1)
	}
	if c.logger == nil {
		c.logger = log.DefaultLogger
	}
	return c
}

func (c *Client) Backend() Backend {
	return c.backend
}

func (c *Client) Signer() *Signer {
	return c.signer
}

func (c *Client) From() common.Address {
	return c.signer.Address()
}

// Submit signs and sends a transaction built by send. Concurrent callers are
// queued.
func (c *Client) Submit(ctx context.Context, send func(*bind.TransactOpts) (*types.Transaction, error)) (*types.Transaction, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	opts, err := c.signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := send(opts)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(log.F{
		"tx":    tx.Hash().Hex(),
		"nonce": tx.Nonce(),
	}).Debug("submitted transaction")
	return tx, nil
}

// WaitForReceipt polls for the receipt of tx until it is mined or the
// receipt timeout elapses. A reverted transaction yields the receipt and
// ErrTransactionFailed.
func (c *Client) WaitForReceipt(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	var receipt *types.Receipt
	err := backoff.RetryNotify(
		func() error {
			r, err := c.backend.TransactionReceipt(ctx, tx.Hash())
			if err != nil {
				return err
			}
			receipt = r
			return nil
		},
		backoff.WithContext(backoff.NewConstantBackOff(c.receiptPollInterval), ctx),
		func(err error, next time.Duration) {
			if errors.Is(err, ethereum.NotFound) {
				return
			}
			c.logger.WithError(err).WithField("tx", tx.Hash().Hex()).
				Warnf("receipt lookup failed, retrying in %v", next)
		},
	)
	if err != nil {
		return nil, supporterrors.Wrapf(err, "no receipt for transaction %s", tx.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, supporterrors.Wrapf(ErrTransactionFailed, "transaction %s reverted (status %d, gas used %d)",
			tx.Hash().Hex(), receipt.Status, receipt.GasUsed)
	}
	return receipt, nil
}

// SubmitAndWait is Submit followed by WaitForReceipt.
func (c *Client) SubmitAndWait(ctx context.Context, send func(*bind.TransactOpts) (*types.Transaction, error)) (*types.Transaction, *types.Receipt, error) {
	tx, err := c.Submit(ctx, send)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := c.WaitForReceipt(ctx, tx)
	return tx, receipt, err
}
