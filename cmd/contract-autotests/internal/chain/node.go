package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stellar/go/support/errors"
	"github.com/stellar/go/support/log"
	"golang.org/x/mod/semver"
)

// WaitForNode retries ChainID until the node answers or ctx is done, and
// returns the reported chain id.
func WaitForNode(ctx context.Context, backend Backend, interval time.Duration, logger *log.Entry) (*big.Int, error) {
	var chainID *big.Int
	err := backoff.RetryNotify(
		func() error {
			id, err := backend.ChainID(ctx)
			if err != nil {
				return err
			}
			chainID = id
			return nil
		},
		backoff.WithContext(backoff.NewConstantBackOff(interval), ctx),
		func(err error, next time.Duration) {
			if logger != nil {
				logger.WithError(err).Infof("node not ready, retrying in %v", next)
			}
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "node did not become ready")
	}
	return chainID, nil
}

// CheckChainID compares the chain id reported by the node with the
// configured one. An expected value of 0 accepts anything.
func CheckChainID(reported *big.Int, expected uint64) error {
	if expected == 0 {
		return nil
	}
	if !reported.IsUint64() || reported.Uint64() != expected {
		return fmt.Errorf("node reports chain id %s, expected %d", reported, expected)
	}
	return nil
}

// ClientVersion returns the node's web3_clientVersion string.
func ClientVersion(ctx context.Context, caller RPCCaller) (string, error) {
	var version string
	if err := caller.CallContext(ctx, &version, "web3_clientVersion"); err != nil {
		return "", errors.Wrap(err, "could not fetch client version")
	}
	return version, nil
}

// ParseClientVersion extracts the semantic version out of a client version
// string such as "Geth/v1.13.5-stable-916d6a44/linux-amd64/go1.21.4". Build
// suffixes are dropped.
func ParseClientVersion(clientVersion string) (string, error) {
	for _, part := range strings.Split(clientVersion, "/") {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}
		if candidate[0] >= '0' && candidate[0] <= '9' {
			candidate = "v" + candidate
		}
		if i := strings.IndexAny(candidate, "-+"); i > 0 {
			candidate = candidate[:i]
		}
		if semver.IsValid(candidate) {
			return semver.Canonical(candidate), nil
		}
	}
	return "", fmt.Errorf("no version found in client version %q", clientVersion)
}

// CheckNodeVersion fails when the node runs a client older than minVersion.
// An empty minVersion disables the check.
func CheckNodeVersion(ctx context.Context, caller RPCCaller, minVersion string) error {
	if minVersion == "" {
		return nil
	}
	if caller == nil {
		return errors.New("node version check needs a JSON RPC connection")
	}
	clientVersion, err := ClientVersion(ctx, caller)
	if err != nil {
		return err
	}
	return checkVersion(clientVersion, minVersion)
}

func checkVersion(clientVersion, minVersion string) error {
	if !strings.HasPrefix(minVersion, "v") {
		minVersion = "v" + minVersion
	}
	if !semver.IsValid(minVersion) {
		return fmt.Errorf("invalid minimum node version %q", minVersion)
	}
	version, err := ParseClientVersion(clientVersion)
	if err != nil {
		return err
	}
	if semver.Compare(version, minVersion) < 0 {
		return fmt.Errorf("node runs %s (%s), need at least %s", version, clientVersion, minVersion)
	}
	return nil
}
