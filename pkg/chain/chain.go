// Package chain reads on-chain state through go-ethereum's JSON-RPC client.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

var CallTimeout = 10 * time.Second

var ErrNoRPC = errors.New("no ETH RPC URLs configured")

// Balance is a native balance read together with the RPCs that failed first.
type Balance struct {
	Address    string
	Ether      *big.Float
	RPCURL     string
	FailedRPCs []string
}

// Float64 returns the balance in ether.
func (b Balance) Float64() float64 {
	if b.Ether == nil {
		return 0
	}
	f, _ := b.Ether.Float64()
	return f
}

// EthBalance reads the latest native balance, trying each RPC in order.
func EthBalance(ctx context.Context, rpcURLs []string, address string) (Balance, error) {
	res := Balance{Address: address}
	if len(rpcURLs) == 0 {
		return res, ErrNoRPC
	}
	account := common.HexToAddress(address)

	var lastErr error
	for _, rpcURL := range rpcURLs {
		wei, err := balanceAt(ctx, rpcURL, account)
		if err != nil {
			res.FailedRPCs = append(res.FailedRPCs, rpcURL)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		f := new(big.Float).SetInt(wei)
		f.Quo(f, big.NewFloat(1e18))
		res.Ether = f
		res.RPCURL = rpcURL
		return res, nil
	}
	return res, fmt.Errorf("eth balance: %w", lastErr)
}

func balanceAt(ctx context.Context, rpcURL string, account common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.BalanceAt(ctx, account, nil)
}

// RPCCheck is the outcome of probing one RPC endpoint.
type RPCCheck struct {
	URL     string
	ChainID *big.Int
	Latency time.Duration
	Err     error
}

// CheckRPC dials rpcURL and asks for its chain id.
func CheckRPC(ctx context.Context, rpcURL string) RPCCheck {
	res := RPCCheck{URL: rpcURL}
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	start := time.Now()
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		res.Err = err
		return res
	}
	defer client.Close()

	id, err := client.ChainID(ctx)
	if err != nil {
		res.Err = fmt.Errorf("failed to get ChainID: %w", err)
		return res
	}
	res.ChainID = id
	res.Latency = time.Since(start)
	return res
}
