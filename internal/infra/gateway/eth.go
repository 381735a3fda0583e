package gateway

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/txplore/txplore"
	"github.com/txplore/txplore/internal/usecase"
)

// EthGateway resolves transactions for an address by scanning recent
// blocks over a JSON-RPC endpoint. Blocks are immutable once final, so
// they are cached aggressively.
type EthGateway struct {
	client *ethclient.Client
	cache  *cache.Cache
	depth  uint64
}

func NewEthGateway(rpc string, depth uint64) (*EthGateway, error) {
	client, err := ethclient.Dial(rpc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial eth rpc")
	}
	return &EthGateway{
		client: client,
		cache:  cache.New(10*time.Minute, 15*time.Minute),
		depth:  depth,
	}, nil
}

func (g *EthGateway) blockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	key := fmt.Sprintf("block:%d", number)
	if cached, found := g.cache.Get(key); found {
		return cached.(*types.Block), nil
	}

	block, err := g.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch block %d", number)
	}
	g.cache.Set(key, block, cache.DefaultExpiration)
	return block, nil
}

// FetchAddressTransactions walks back from the chain head and collects
// up to limit transactions sent to or from the address, newest first.
// PostID is left unset; the importer fills it in.
func (g *EthGateway) FetchAddressTransactions(ctx context.Context, address string, limit int) ([]txplore.NewTransactionInput, error) {

	if !common.IsHexAddress(address) {
		return nil, errors.Errorf("not a hex address: %s", address)
	}
	addr := common.HexToAddress(address)

	head, err := g.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch chain head")
	}

	var seeds []txplore.NewTransactionInput
	headNum := head.Number.Uint64()
	for n := headNum; n > 0 && headNum-n < g.depth && len(seeds) < limit; n-- {
		block, err := g.blockByNumber(ctx, n)
		if err != nil {
			return nil, err
		}

		for _, tx := range block.Transactions() {
			if len(seeds) == limit {
				break
			}

			match := tx.To() != nil && *tx.To() == addr
			if !match {
				from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
				if err == nil && from == addr {
					match = true
				}
			}
			if !match {
				continue
			}

			seeds = append(seeds, txplore.NewTransactionInput{
				Content:   tx.Hash().Hex(),
				Balance:   tx.Value().String(),
				TimeStamp: fmt.Sprintf("%d", block.Time()),
			})
		}
	}

	return seeds, nil
}

var _ usecase.ChainGateway = (*EthGateway)(nil)
