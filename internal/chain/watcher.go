package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/shieldfi/testnet-rewards/internal/rewards"
	"github.com/shieldfi/testnet-rewards/internal/types"
	"github.com/shieldfi/testnet-rewards/pkg/logger"
)

// vaultABI describes the Deposited event emitted by the testnet vault
// contract. The deposited asset is shUSD with 6 decimals, so assets maps
// directly to a USD value.
const vaultABI = `[{"anonymous":false,"inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"assets","type":"uint256"},{"indexed":false,"name":"shares","type":"uint256"}],"name":"Deposited","type":"event"}]`

const assetDecimals = 1e6

// DepositEvent is a parsed vault deposit log.
type DepositEvent struct {
	TxHash   common.Hash
	Account  common.Address
	Assets   *big.Int
	Shares   *big.Int
	USDValue float64
}

// RewardsEngine is the slice of the rewards service the watcher drives.
type RewardsEngine interface {
	AwardDepositPoints(wallet string, amountUSD float64, refs types.CorrelationRefs) (*rewards.ActivityResult, error)
}

// Watcher polls the Flare testnet for vault deposit events and converts
// each into a deposit award. Awarding is idempotent at the rewards layer,
// so re-scanning a block range after a restart is safe.
type Watcher struct {
	client       ChainClient
	vault        common.Address
	svc          RewardsEngine
	pollInterval time.Duration
	lastBlock    uint64
	depositTopic common.Hash
}

// NewWatcher dials the RPC endpoint and positions the scan cursor at
// startBlock. A zero startBlock means start from the current head.
func NewWatcher(rpcURL, vaultAddress string, startBlock uint64, pollInterval time.Duration, svc RewardsEngine, creator ClientCreator) (*Watcher, error) {
	if creator == nil {
		creator = defaultClientCreator
	}
	client, err := creator(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}

	return &Watcher{
		client:       client,
		vault:        common.HexToAddress(vaultAddress),
		svc:          svc,
		pollInterval: pollInterval,
		lastBlock:    startBlock,
		depositTopic: parsed.Events["Deposited"].ID,
	}, nil
}

// Run polls until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer w.client.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				logger.Error("chain poll failed: %v", err)
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	head, err := w.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch head block: %w", err)
	}

	if w.lastBlock == 0 {
		w.lastBlock = head
		return nil
	}
	if head <= w.lastBlock {
		return nil
	}

	logs, err := w.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(w.lastBlock + 1),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{w.vault},
		Topics:    [][]common.Hash{{w.depositTopic}},
	})
	if err != nil {
		return fmt.Errorf("failed to filter vault logs: %w", err)
	}

	for _, vLog := range logs {
		event, err := w.parseDepositEvent(vLog)
		if err != nil {
			logger.Error("skipping unparseable vault log %s: %v", vLog.TxHash.Hex(), err)
			continue
		}
		if err := w.award(event); err != nil {
			// leave the cursor behind this block so the range is retried
			return err
		}
	}

	w.lastBlock = head
	return nil
}

func (w *Watcher) parseDepositEvent(vLog ethtypes.Log) (*DepositEvent, error) {
	if len(vLog.Topics) != 2 || vLog.Topics[0] != w.depositTopic {
		return nil, fmt.Errorf("not a vault deposit event")
	}
	if len(vLog.Data) != 64 {
		return nil, fmt.Errorf("invalid data length for deposit event: got %d, want 64", len(vLog.Data))
	}

	event := &DepositEvent{
		TxHash:  vLog.TxHash,
		Account: common.BytesToAddress(vLog.Topics[1].Bytes()),
		Assets:  new(big.Int).SetBytes(vLog.Data[0:32]),
		Shares:  new(big.Int).SetBytes(vLog.Data[32:64]),
	}

	usd := new(big.Float).SetInt(event.Assets)
	event.USDValue, _ = usd.Quo(usd, big.NewFloat(assetDecimals)).Float64()

	return event, nil
}

func (w *Watcher) award(event *DepositEvent) error {
	result, err := w.svc.AwardDepositPoints(event.Account.Hex(), event.USDValue, types.CorrelationRefs{
		TxHash: event.TxHash.Hex(),
	})
	if err != nil {
		return fmt.Errorf("failed to award deposit points for %s: %w", event.TxHash.Hex(), err)
	}
	if result != nil {
		logger.Info("Processed vault deposit: tx %s, account %s, $%.2f, %d points",
			event.TxHash.Hex(), event.Account.Hex(), event.USDValue, result.PointsAwarded)
	}
	return nil
}
