package usecase

import (
	"context"
	"strings"

	"github.com/txplore/txplore"
	"github.com/txplore/txplore/internal/domain"
)

// Transaction mutations publish on the transactions topic only; the
// events carry the parent post id so per-post observers can filter.

func (uc *PostUsecase) AddTransaction(ctx context.Context, input txplore.NewTransactionInput) (txplore.Transaction, error) {

	if strings.TrimSpace(input.Content) == "" {
		return txplore.Transaction{}, domain.ValidationError{Field: "content", Reason: "required"}
	}
	if input.PostID <= 0 {
		return txplore.Transaction{}, domain.ValidationError{Field: "postId", Reason: "required"}
	}

	id, err := uc.repo.CreateTransaction(ctx, input)
	if err != nil {
		return txplore.Transaction{}, err
	}

	transaction, err := uc.repo.GetTransaction(ctx, id)
	if err != nil {
		return txplore.Transaction{}, err
	}

	uc.signal.Publish(ctx, txplore.TopicTransactions, txplore.Event{
		Mutation:    txplore.MutationCreated,
		ID:          transaction.ID,
		PostID:      transaction.PostID,
		Transaction: &transaction,
	})

	return transaction, nil
}

func (uc *PostUsecase) EditTransaction(ctx context.Context, input txplore.EditTransactionInput) (txplore.Transaction, error) {

	if _, err := uc.repo.GetTransaction(ctx, input.ID); err != nil {
		return txplore.Transaction{}, err
	}

	if err := uc.repo.UpdateTransaction(ctx, input); err != nil {
		return txplore.Transaction{}, err
	}

	transaction, err := uc.repo.GetTransaction(ctx, input.ID)
	if err != nil {
		return txplore.Transaction{}, err
	}

	uc.signal.Publish(ctx, txplore.TopicTransactions, txplore.Event{
		Mutation:    txplore.MutationUpdated,
		ID:          transaction.ID,
		PostID:      transaction.PostID,
		Transaction: &transaction,
	})

	return transaction, nil
}

// DeleteTransaction publishes a DELETED event with no payload; the id
// is authoritative for observers.
func (uc *PostUsecase) DeleteTransaction(ctx context.Context, id int64) (txplore.DeleteResult, error) {

	transaction, err := uc.repo.GetTransaction(ctx, id)
	if err != nil {
		return txplore.DeleteResult{}, err
	}

	deleted, err := uc.repo.DeleteTransaction(ctx, id)
	if err != nil {
		return txplore.DeleteResult{}, err
	}
	if !deleted {
		return txplore.DeleteResult{}, domain.NotFoundError{Resource: "transaction", ID: id}
	}

	uc.signal.Publish(ctx, txplore.TopicTransactions, txplore.Event{
		Mutation: txplore.MutationDeleted,
		ID:       transaction.ID,
		PostID:   transaction.PostID,
	})

	return txplore.DeleteResult{ID: transaction.ID}, nil
}
