package usecase

import (
	"context"

	"github.com/txplore/txplore"
)

// PostRepository defines the storage operations behind the feed.
type PostRepository interface {
	ListPosts(ctx context.Context, limit int, after int64) ([]txplore.Post, error)
	CountPosts(ctx context.Context) (int64, error)
	CountOlder(ctx context.Context, id int64) (int64, error)
	GetPost(ctx context.Context, id int64) (txplore.Post, error)
	CreatePost(ctx context.Context, input txplore.NewPostInput) (int64, error)
	UpdatePost(ctx context.Context, input txplore.EditPostInput) error
	DeletePost(ctx context.Context, id int64) (bool, error)
	TransactionsForPosts(ctx context.Context, postIDs []int64) (map[int64][]txplore.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (txplore.Transaction, error)
	CreateTransaction(ctx context.Context, input txplore.NewTransactionInput) (int64, error)
	UpdateTransaction(ctx context.Context, input txplore.EditTransactionInput) error
	DeleteTransaction(ctx context.Context, id int64) (bool, error)
}

// Publisher fans change events out to subscribers. Publishing is fire
// and forget; it only ever runs after the store write succeeded.
type Publisher interface {
	Publish(ctx context.Context, topic string, event txplore.Event)
}
