package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/txplore/txplore"
	"github.com/txplore/txplore/internal/domain"
)

const defaultPageSize = 10

type PostUsecase struct {
	repo   PostRepository
	signal Publisher
}

func NewPostUsecase(repo PostRepository, signal Publisher) *PostUsecase {
	return &PostUsecase{
		repo:   repo,
		signal: signal,
	}
}

// Paginate returns one window of the post feed. The total count and the
// has-next check reflect the whole collection, not the fetched page, so
// they run as their own queries, concurrently once the page edge is
// known.
func (uc *PostUsecase) Paginate(ctx context.Context, limit int, after int64) (txplore.PostWindow, error) {

	if limit <= 0 {
		limit = defaultPageSize
	}

	posts, err := uc.repo.ListPosts(ctx, limit, after)
	if err != nil {
		return txplore.PostWindow{}, err
	}

	edges := make([]txplore.PostEdge, 0, len(posts))
	for _, post := range posts {
		edges = append(edges, txplore.PostEdge{Cursor: post.ID, Node: post})
	}

	var endCursor int64
	if len(edges) > 0 {
		endCursor = edges[len(edges)-1].Cursor
	}

	var (
		total    int64
		older    int64
		totalErr error
		olderErr error
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		total, totalErr = uc.repo.CountPosts(ctx)
	}()
	go func() {
		defer wg.Done()
		if endCursor > 0 {
			older, olderErr = uc.repo.CountOlder(ctx, endCursor)
		}
	}()
	wg.Wait()

	if totalErr != nil {
		return txplore.PostWindow{}, totalErr
	}
	if olderErr != nil {
		return txplore.PostWindow{}, olderErr
	}

	return txplore.PostWindow{
		TotalCount: total,
		Edges:      edges,
		PageInfo: txplore.PageInfo{
			EndCursor:   endCursor,
			HasNextPage: older > 0,
		},
	}, nil
}

func (uc *PostUsecase) Get(ctx context.Context, id int64) (txplore.Post, error) {
	return uc.repo.GetPost(ctx, id)
}

// TransactionsForPosts is the batched child loader: one store call for
// any number of posts, results keyed by the caller's ids.
func (uc *PostUsecase) TransactionsForPosts(ctx context.Context, postIDs []int64) (map[int64][]txplore.Transaction, error) {
	return uc.repo.TransactionsForPosts(ctx, postIDs)
}

func (uc *PostUsecase) Create(ctx context.Context, input txplore.NewPostInput) (txplore.Post, error) {

	if strings.TrimSpace(input.Title) == "" {
		return txplore.Post{}, domain.ValidationError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(input.Content) == "" {
		return txplore.Post{}, domain.ValidationError{Field: "content", Reason: "required"}
	}

	id, err := uc.repo.CreatePost(ctx, input)
	if err != nil {
		return txplore.Post{}, err
	}

	post, err := uc.repo.GetPost(ctx, id)
	if err != nil {
		return txplore.Post{}, err
	}

	uc.signal.Publish(ctx, txplore.TopicPosts, txplore.Event{
		Mutation: txplore.MutationCreated,
		ID:       post.ID,
		Post:     &post,
	})

	return post, nil
}

// Edit updates a post and notifies both audiences: list observers on
// the posts topic and detail observers on the post topic. These are two
// independent events because their relevance filters differ.
func (uc *PostUsecase) Edit(ctx context.Context, input txplore.EditPostInput) (txplore.Post, error) {

	if _, err := uc.repo.GetPost(ctx, input.ID); err != nil {
		return txplore.Post{}, err
	}

	if err := uc.repo.UpdatePost(ctx, input); err != nil {
		return txplore.Post{}, err
	}

	post, err := uc.repo.GetPost(ctx, input.ID)
	if err != nil {
		return txplore.Post{}, err
	}

	uc.signal.Publish(ctx, txplore.TopicPosts, txplore.Event{
		Mutation: txplore.MutationUpdated,
		ID:       post.ID,
		Post:     &post,
	})
	uc.signal.Publish(ctx, txplore.TopicPost, txplore.Event{
		Mutation: txplore.MutationUpdated,
		ID:       post.ID,
		Post:     &post,
	})

	return post, nil
}

// Delete removes a post and its transactions. The DELETED event carries
// the last known snapshot so observers can show what disappeared.
// Nothing is published when the post did not exist.
func (uc *PostUsecase) Delete(ctx context.Context, id int64) (txplore.DeleteResult, error) {

	post, err := uc.repo.GetPost(ctx, id)
	if err != nil {
		return txplore.DeleteResult{}, err
	}

	deleted, err := uc.repo.DeletePost(ctx, id)
	if err != nil {
		return txplore.DeleteResult{}, err
	}
	if !deleted {
		return txplore.DeleteResult{}, domain.NotFoundError{Resource: "post", ID: id}
	}

	uc.signal.Publish(ctx, txplore.TopicPosts, txplore.Event{
		Mutation: txplore.MutationDeleted,
		ID:       post.ID,
		Post:     &post,
	})

	return txplore.DeleteResult{ID: post.ID}, nil
}
