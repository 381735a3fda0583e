package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/txplore/txplore"
	"github.com/txplore/txplore/internal/domain"
)

func TestAddTransactionPublishesCreated(t *testing.T) {
	repo := newMockPostRepo()
	pub := &mockPublisher{}
	uc := NewPostUsecase(repo, pub)
	seedUsecase(t, uc, 1)

	tx, err := uc.AddTransaction(context.Background(), txplore.NewTransactionInput{
		PostID: 1, Content: "0xabc", Balance: "10", TimeStamp: "123",
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}

	events := pub.published()
	last := events[len(events)-1]
	if last.Topic != txplore.TopicTransactions || last.Mutation != txplore.MutationCreated {
		t.Fatalf("unexpected event %+v", last)
	}
	if last.ID != tx.ID || last.PostID != 1 || last.Transaction == nil {
		t.Fatalf("event must carry id, parent id and payload: %+v", last)
	}
}

func TestAddTransactionConstraintPublishesNothing(t *testing.T) {
	pub := &mockPublisher{}
	uc := NewPostUsecase(newMockPostRepo(), pub)

	_, err := uc.AddTransaction(context.Background(), txplore.NewTransactionInput{
		PostID: 7, Content: "0xabc", Balance: "0", TimeStamp: "1",
	})
	if !errors.Is(err, domain.ErrConstraint) {
		t.Fatalf("expected constraint error, got %v", err)
	}
	if len(pub.published()) != 0 {
		t.Fatalf("no event may be published on constraint violation")
	}
}

func TestAddTransactionValidation(t *testing.T) {
	pub := &mockPublisher{}
	uc := NewPostUsecase(newMockPostRepo(), pub)

	_, err := uc.AddTransaction(context.Background(), txplore.NewTransactionInput{PostID: 1})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEditTransactionPublishesUpdated(t *testing.T) {
	repo := newMockPostRepo()
	pub := &mockPublisher{}
	uc := NewPostUsecase(repo, pub)
	seedUsecase(t, uc, 1)

	tx, err := uc.AddTransaction(context.Background(), txplore.NewTransactionInput{
		PostID: 1, Content: "0xabc", Balance: "0", TimeStamp: "1",
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}

	content := "0xdef"
	edited, err := uc.EditTransaction(context.Background(), txplore.EditTransactionInput{
		ID: tx.ID, PostID: 1, Content: &content,
	})
	if err != nil {
		t.Fatalf("edit transaction: %v", err)
	}
	if edited.Content != "0xdef" {
		t.Fatalf("unexpected transaction %+v", edited)
	}

	events := pub.published()
	last := events[len(events)-1]
	if last.Mutation != txplore.MutationUpdated || last.PostID != 1 || last.Transaction == nil {
		t.Fatalf("unexpected event %+v", last)
	}
}

func TestDeleteTransactionEventHasNoPayload(t *testing.T) {
	repo := newMockPostRepo()
	pub := &mockPublisher{}
	uc := NewPostUsecase(repo, pub)
	seedUsecase(t, uc, 1)

	tx, err := uc.AddTransaction(context.Background(), txplore.NewTransactionInput{
		PostID: 1, Content: "0xabc", Balance: "0", TimeStamp: "1",
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}

	result, err := uc.DeleteTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if result.ID != tx.ID {
		t.Fatalf("unexpected result %+v", result)
	}

	events := pub.published()
	last := events[len(events)-1]
	if last.Mutation != txplore.MutationDeleted || last.ID != tx.ID || last.PostID != 1 {
		t.Fatalf("unexpected event %+v", last)
	}
	if last.Transaction != nil {
		t.Fatalf("delete event must not carry a payload")
	}
}

func TestDeleteTransactionMissing(t *testing.T) {
	pub := &mockPublisher{}
	uc := NewPostUsecase(newMockPostRepo(), pub)

	_, err := uc.DeleteTransaction(context.Background(), 42)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(pub.published()) != 0 {
		t.Fatalf("expected zero events")
	}
}

func TestTransactionsForPostsPreservesOrder(t *testing.T) {
	repo := newMockPostRepo()
	pub := &mockPublisher{}
	uc := NewPostUsecase(repo, pub)
	seedUsecase(t, uc, 2)

	for _, pid := range []int64{2, 1, 2} {
		_, err := uc.AddTransaction(context.Background(), txplore.NewTransactionInput{
			PostID: pid, Content: "c", Balance: "0", TimeStamp: "1",
		})
		if err != nil {
			t.Fatalf("add transaction: %v", err)
		}
	}

	grouped, err := uc.TransactionsForPosts(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("batched load: %v", err)
	}
	if len(grouped[1]) != 1 || len(grouped[2]) != 2 {
		t.Fatalf("unexpected grouping %+v", grouped)
	}
	if grouped[2][0].ID >= grouped[2][1].ID {
		t.Fatalf("insertion order not preserved")
	}
}
