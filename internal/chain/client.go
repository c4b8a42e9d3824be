package chain

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainClient is the slice of the RPC client the watcher needs. ethclient
// satisfies it; tests substitute a fake.
type ChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	Close()
}

type ClientCreator func(url string) (ChainClient, error)

func defaultClientCreator(url string) (ChainClient, error) {
	return ethclient.Dial(url)
}
