package usecase

import (
	"context"

	"github.com/pkg/errors"

	"github.com/txplore/txplore"
)

const defaultImportLimit = 10

// ChainGateway resolves on-chain transactions for an address.
type ChainGateway interface {
	FetchAddressTransactions(ctx context.Context, address string, limit int) ([]txplore.NewTransactionInput, error)
}

// ImportTransactions seeds a post with its on-chain transactions. The
// post title is the watched address. Each seed goes through the normal
// AddTransaction path so every observer sees the CREATED events.
func (uc *PostUsecase) ImportTransactions(ctx context.Context, gateway ChainGateway, postID int64, limit int) (int, error) {

	if gateway == nil {
		return 0, errors.New("chain gateway not configured")
	}
	if limit <= 0 {
		limit = defaultImportLimit
	}

	post, err := uc.repo.GetPost(ctx, postID)
	if err != nil {
		return 0, err
	}

	seeds, err := gateway.FetchAddressTransactions(ctx, post.Title, limit)
	if err != nil {
		return 0, errors.Wrap(err, "failed to fetch address transactions")
	}

	imported := 0
	for _, seed := range seeds {
		seed.PostID = postID
		if _, err := uc.AddTransaction(ctx, seed); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
