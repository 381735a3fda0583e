package client

import (
	"sync"

	"github.com/txplore/txplore"
)

type pendingTxOp struct {
	token    OpToken
	mutation txplore.Mutation
	id       int64
	snapshot []txplore.Transaction
}

// TransactionsReconciler maintains the cached transaction list of one
// watched post. New entries append in arrival order, matching the
// store's insertion ordering.
type TransactionsReconciler struct {
	mu           sync.Mutex
	postID       int64
	transactions []txplore.Transaction
	pending      []pendingTxOp
	nextOp       OpToken
}

func NewTransactionsReconciler(postID int64) *TransactionsReconciler {
	return &TransactionsReconciler{postID: postID}
}

func (r *TransactionsReconciler) Load(transactions []txplore.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append([]txplore.Transaction(nil), transactions...)
	r.pending = nil
}

func (r *TransactionsReconciler) Transactions() []txplore.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]txplore.Transaction(nil), r.transactions...)
}

// Apply merges one change event. Events for other posts and duplicate
// deliveries are no-ops.
func (r *TransactionsReconciler) Apply(ev txplore.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.PostID != 0 && ev.PostID != r.postID {
		return
	}

	switch ev.Mutation {
	case txplore.MutationCreated:
		if ev.Transaction == nil {
			return
		}
		if findTransaction(r.transactions, ev.ID) >= 0 {
			return // duplicate
		}
		// drop unconfirmed placeholders, then append: a placeholder can
		// only be this create's own optimistic entry
		kept := r.transactions[:0]
		replaced := false
		for _, tx := range r.transactions {
			if tx.ID == 0 {
				replaced = true
				continue
			}
			kept = append(kept, tx)
		}
		r.transactions = append(kept, *ev.Transaction)
		if replaced {
			r.confirmPending(ev.ID)
		}

	case txplore.MutationUpdated:
		if ev.Transaction == nil {
			return
		}
		if idx := findTransaction(r.transactions, ev.ID); idx >= 0 {
			r.transactions[idx] = *ev.Transaction
		}

	case txplore.MutationDeleted:
		idx := findTransaction(r.transactions, ev.ID)
		if idx < 0 {
			return
		}
		r.transactions = append(r.transactions[:idx], r.transactions[idx+1:]...)
	}
}

func (r *TransactionsReconciler) ApplyOptimistic(mutation txplore.Mutation, tx txplore.Transaction) OpToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextOp++
	op := pendingTxOp{
		token:    r.nextOp,
		mutation: mutation,
		id:       tx.ID,
		snapshot: append([]txplore.Transaction(nil), r.transactions...),
	}
	r.pending = append(r.pending, op)

	switch mutation {
	case txplore.MutationCreated:
		r.transactions = append(r.transactions, tx)
	case txplore.MutationUpdated:
		if idx := findTransaction(r.transactions, tx.ID); idx >= 0 {
			r.transactions[idx] = tx
		}
	case txplore.MutationDeleted:
		if idx := findTransaction(r.transactions, tx.ID); idx >= 0 {
			r.transactions = append(r.transactions[:idx], r.transactions[idx+1:]...)
		}
	}

	return op.token
}

func (r *TransactionsReconciler) Resolve(token OpToken, outcome TransactionOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, op := range r.pending {
		if op.token == token {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	op := r.pending[idx]
	r.pending = append(r.pending[:idx], r.pending[idx+1:]...)

	if outcome.Err != nil {
		r.transactions = op.snapshot
		return
	}
	if outcome.Transaction == nil {
		return
	}

	switch op.mutation {
	case txplore.MutationCreated:
		confirmed := findTransaction(r.transactions, outcome.Transaction.ID)
		placeholder := findTransaction(r.transactions, op.id)
		switch {
		case confirmed >= 0 && placeholder >= 0 && confirmed != placeholder:
			r.transactions = append(r.transactions[:placeholder], r.transactions[placeholder+1:]...)
		case confirmed >= 0:
			r.transactions[confirmed] = *outcome.Transaction
		case placeholder >= 0:
			r.transactions[placeholder] = *outcome.Transaction
		}
	case txplore.MutationUpdated:
		if idx := findTransaction(r.transactions, outcome.Transaction.ID); idx >= 0 {
			r.transactions[idx] = *outcome.Transaction
		}
	case txplore.MutationDeleted:
		// removal already applied optimistically
	}
}

func (r *TransactionsReconciler) confirmPending(id int64) {
	for i, op := range r.pending {
		if op.mutation == txplore.MutationCreated && op.id == 0 {
			r.pending[i].id = id
			return
		}
	}
}

func findTransaction(transactions []txplore.Transaction, id int64) int {
	for i, tx := range transactions {
		if tx.ID == id {
			return i
		}
	}
	return -1
}
