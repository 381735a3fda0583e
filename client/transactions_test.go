package client

import (
	"reflect"
	"testing"

	"github.com/txplore/txplore"
)

func loadedTransactions() []txplore.Transaction {
	return []txplore.Transaction{
		{ID: 1, PostID: 7, Content: "0xaa", Balance: "100"},
		{ID: 2, PostID: 7, Content: "0xbb", Balance: "200"},
	}
}

func txIDs(transactions []txplore.Transaction) []int64 {
	ids := make([]int64, 0, len(transactions))
	for _, tx := range transactions {
		ids = append(ids, tx.ID)
	}
	return ids
}

func TestTransactionsApplyCreatedAppends(t *testing.T) {
	r := NewTransactionsReconciler(7)
	r.Load(loadedTransactions())

	r.Apply(txplore.Event{
		Mutation:    txplore.MutationCreated,
		ID:          3,
		PostID:      7,
		Transaction: &txplore.Transaction{ID: 3, PostID: 7, Content: "0xcc"},
	})

	if !reflect.DeepEqual(txIDs(r.Transactions()), []int64{1, 2, 3}) {
		t.Fatalf("unexpected order %v", txIDs(r.Transactions()))
	}
}

func TestTransactionsApplyCreatedIdempotent(t *testing.T) {
	r := NewTransactionsReconciler(7)
	r.Load(loadedTransactions())

	ev := txplore.Event{
		Mutation:    txplore.MutationCreated,
		ID:          3,
		PostID:      7,
		Transaction: &txplore.Transaction{ID: 3, PostID: 7, Content: "0xcc"},
	}
	r.Apply(ev)
	once := r.Transactions()
	r.Apply(ev)

	if !reflect.DeepEqual(r.Transactions(), once) {
		t.Fatalf("duplicate delivery changed the list")
	}
}

func TestTransactionsApplyIgnoresOtherPosts(t *testing.T) {
	r := NewTransactionsReconciler(7)
	r.Load(loadedTransactions())

	r.Apply(txplore.Event{
		Mutation:    txplore.MutationCreated,
		ID:          3,
		PostID:      9,
		Transaction: &txplore.Transaction{ID: 3, PostID: 9},
	})

	if len(r.Transactions()) != 2 {
		t.Fatalf("event for another post must not merge")
	}
}

func TestTransactionsApplyDeleted(t *testing.T) {
	r := NewTransactionsReconciler(7)
	r.Load(loadedTransactions())

	r.Apply(txplore.Event{Mutation: txplore.MutationDeleted, ID: 1, PostID: 7})

	if !reflect.DeepEqual(txIDs(r.Transactions()), []int64{2}) {
		t.Fatalf("unexpected list %v", txIDs(r.Transactions()))
	}

	// deleting again is a no-op
	r.Apply(txplore.Event{Mutation: txplore.MutationDeleted, ID: 1, PostID: 7})
	if len(r.Transactions()) != 1 {
		t.Fatalf("duplicate delete must not splice again")
	}
}

func TestTransactionsOptimisticCreateConfirmedByEvent(t *testing.T) {
	r := NewTransactionsReconciler(7)
	r.Load(loadedTransactions())

	r.ApplyOptimistic(txplore.MutationCreated, txplore.Transaction{PostID: 7, Content: "0xcc"})
	if !reflect.DeepEqual(txIDs(r.Transactions()), []int64{1, 2, 0}) {
		t.Fatalf("expected trailing placeholder, got %v", txIDs(r.Transactions()))
	}

	r.Apply(txplore.Event{
		Mutation:    txplore.MutationCreated,
		ID:          3,
		PostID:      7,
		Transaction: &txplore.Transaction{ID: 3, PostID: 7, Content: "0xcc"},
	})

	if !reflect.DeepEqual(txIDs(r.Transactions()), []int64{1, 2, 3}) {
		t.Fatalf("expected one confirmed entry, got %v", txIDs(r.Transactions()))
	}
}

func TestTransactionsOptimisticCreateConfirmedByResponseThenEvent(t *testing.T) {
	r := NewTransactionsReconciler(7)
	r.Load(loadedTransactions())

	token := r.ApplyOptimistic(txplore.MutationCreated, txplore.Transaction{PostID: 7, Content: "0xcc"})
	confirmed := txplore.Transaction{ID: 3, PostID: 7, Content: "0xcc"}
	r.Resolve(token, TransactionOutcome{Transaction: &confirmed})

	r.Apply(txplore.Event{
		Mutation:    txplore.MutationCreated,
		ID:          3,
		PostID:      7,
		Transaction: &confirmed,
	})

	if !reflect.DeepEqual(txIDs(r.Transactions()), []int64{1, 2, 3}) {
		t.Fatalf("expected single entry for id 3, got %v", txIDs(r.Transactions()))
	}
}

func TestTransactionsOptimisticFailureRollsBack(t *testing.T) {
	r := NewTransactionsReconciler(7)
	before := loadedTransactions()
	r.Load(before)

	token := r.ApplyOptimistic(txplore.MutationDeleted, txplore.Transaction{ID: 1})
	r.Resolve(token, TransactionOutcome{Err: ErrNotFound})

	if !reflect.DeepEqual(r.Transactions(), before) {
		t.Fatalf("rollback incomplete: %v", txIDs(r.Transactions()))
	}
}

func TestTransactionsOptimisticUpdate(t *testing.T) {
	r := NewTransactionsReconciler(7)
	r.Load(loadedTransactions())

	edited := txplore.Transaction{ID: 2, PostID: 7, Content: "0xbb", Balance: "999"}
	token := r.ApplyOptimistic(txplore.MutationUpdated, edited)
	r.Resolve(token, TransactionOutcome{Transaction: &edited})
	r.Apply(txplore.Event{Mutation: txplore.MutationUpdated, ID: 2, PostID: 7, Transaction: &edited})

	list := r.Transactions()
	if list[1].Balance != "999" {
		t.Fatalf("unexpected entry %+v", list[1])
	}
	if !reflect.DeepEqual(txIDs(list), []int64{1, 2}) {
		t.Fatalf("unexpected order %v", txIDs(list))
	}
}
