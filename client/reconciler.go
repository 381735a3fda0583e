package client

import (
	"sync"

	"github.com/txplore/txplore"
)

// OpToken identifies one optimistic mutation between ApplyOptimistic
// and Resolve.
type OpToken int64

// PostOutcome resolves an optimistic post mutation: Post set on
// confirmation, Err set on failure.
type PostOutcome struct {
	Post *txplore.Post
	Err  error
}

// TransactionOutcome resolves an optimistic transaction mutation.
type TransactionOutcome struct {
	Transaction *txplore.Transaction
	Err         error
}

type pendingWindowOp struct {
	token    OpToken
	mutation txplore.Mutation
	id       int64 // 0 while the create is unconfirmed
	snapshot txplore.PostWindow
}

// WindowReconciler maintains one observer's cached post window and
// merges change events and optimistic mutations into it without a
// re-query. The window accumulates pages from the top of the feed, so
// edges are always descending by id with no duplicates.
type WindowReconciler struct {
	mu      sync.Mutex
	window  txplore.PostWindow
	pending []pendingWindowOp
	nextOp  OpToken
}

func NewWindowReconciler() *WindowReconciler {
	return &WindowReconciler{}
}

// Load replaces the cached window with a freshly fetched first page.
func (r *WindowReconciler) Load(window txplore.PostWindow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.window = cloneWindow(window)
	r.pending = nil
}

// Append merges a further page fetched with the previous end cursor.
func (r *WindowReconciler) Append(window txplore.PostWindow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, edge := range window.Edges {
		if findEdge(r.window.Edges, edge.Cursor) >= 0 {
			continue
		}
		r.window.Edges = append(r.window.Edges, edge)
	}
	r.window.TotalCount = window.TotalCount
	r.window.PageInfo = window.PageInfo
}

// Window returns a copy of the cached window.
func (r *WindowReconciler) Window() txplore.PostWindow {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneWindow(r.window)
}

// Apply merges one change event into the window. Safe to call with
// duplicate deliveries.
func (r *WindowReconciler) Apply(ev txplore.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apply(ev)
}

func (r *WindowReconciler) apply(ev txplore.Event) {
	switch ev.Mutation {
	case txplore.MutationCreated:
		if ev.Post == nil {
			return
		}
		if idx := findEdge(r.window.Edges, ev.ID); idx >= 0 {
			// duplicate delivery or confirmation of our own create
			r.window.Edges[idx] = txplore.PostEdge{Cursor: ev.ID, Node: *ev.Post}
			r.refreshCursor()
			return
		}
		if idx := findEdge(r.window.Edges, 0); idx >= 0 {
			// confirmation for an optimistic placeholder: same position,
			// count was already bumped by the optimistic apply
			r.window.Edges[idx] = txplore.PostEdge{Cursor: ev.ID, Node: *ev.Post}
			r.confirmPending(ev.ID)
			r.refreshCursor()
			return
		}
		r.insertDescending(txplore.PostEdge{Cursor: ev.ID, Node: *ev.Post})
		r.window.TotalCount++
		r.refreshCursor()

	case txplore.MutationUpdated:
		if ev.Post == nil {
			return
		}
		idx := findEdge(r.window.Edges, ev.ID)
		if idx < 0 {
			return // never loaded, do not insert
		}
		r.window.Edges[idx].Node = *ev.Post

	case txplore.MutationDeleted:
		idx := findEdge(r.window.Edges, ev.ID)
		if idx < 0 {
			return // already removed locally
		}
		r.window.Edges = append(r.window.Edges[:idx], r.window.Edges[idx+1:]...)
		if r.window.TotalCount > 0 {
			r.window.TotalCount--
		}
		r.refreshCursor()
	}
}

// ApplyOptimistic applies a not-yet-confirmed mutation and returns a
// token for Resolve. A create uses a placeholder id of 0 until the
// confirmation supplies the real one.
func (r *WindowReconciler) ApplyOptimistic(mutation txplore.Mutation, post txplore.Post) OpToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextOp++
	op := pendingWindowOp{
		token:    r.nextOp,
		mutation: mutation,
		id:       post.ID,
		snapshot: cloneWindow(r.window),
	}
	r.pending = append(r.pending, op)

	switch mutation {
	case txplore.MutationCreated:
		r.window.Edges = append([]txplore.PostEdge{{Cursor: post.ID, Node: post}}, r.window.Edges...)
		r.window.TotalCount++
	case txplore.MutationUpdated:
		if idx := findEdge(r.window.Edges, post.ID); idx >= 0 {
			r.window.Edges[idx].Node = post
		}
	case txplore.MutationDeleted:
		if idx := findEdge(r.window.Edges, post.ID); idx >= 0 {
			r.window.Edges = append(r.window.Edges[:idx], r.window.Edges[idx+1:]...)
			if r.window.TotalCount > 0 {
				r.window.TotalCount--
			}
			r.refreshCursor()
		}
	}

	return op.token
}

// Resolve settles an optimistic mutation. A confirmation folds the
// server record into the window exactly once; a failure restores the
// pre-mutation window, order, cursor and count included.
func (r *WindowReconciler) Resolve(token OpToken, outcome PostOutcome) {
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
		r.window = op.snapshot
		return
	}
	if outcome.Post == nil {
		return
	}

	switch op.mutation {
	case txplore.MutationCreated:
		confirmed := findEdge(r.window.Edges, outcome.Post.ID)
		placeholder := findEdge(r.window.Edges, op.id)
		switch {
		case confirmed >= 0 && placeholder >= 0 && confirmed != placeholder:
			// the change event landed before the mutation response;
			// drop the leftover placeholder
			r.window.Edges = append(r.window.Edges[:placeholder], r.window.Edges[placeholder+1:]...)
			if r.window.TotalCount > 0 {
				r.window.TotalCount--
			}
		case confirmed >= 0:
			r.window.Edges[confirmed] = txplore.PostEdge{Cursor: outcome.Post.ID, Node: *outcome.Post}
		case placeholder >= 0:
			r.window.Edges[placeholder] = txplore.PostEdge{Cursor: outcome.Post.ID, Node: *outcome.Post}
		}
		r.refreshCursor()
	case txplore.MutationUpdated:
		if idx := findEdge(r.window.Edges, outcome.Post.ID); idx >= 0 {
			r.window.Edges[idx].Node = *outcome.Post
		}
	case txplore.MutationDeleted:
		// removal already applied optimistically
	}
}

func (r *WindowReconciler) confirmPending(id int64) {
	for i, op := range r.pending {
		if op.mutation == txplore.MutationCreated && op.id == 0 {
			r.pending[i].id = id
			return
		}
	}
}

func (r *WindowReconciler) insertDescending(edge txplore.PostEdge) {
	pos := len(r.window.Edges)
	for i, existing := range r.window.Edges {
		if existing.Cursor < edge.Cursor {
			pos = i
			break
		}
	}
	edges := append(r.window.Edges, txplore.PostEdge{})
	copy(edges[pos+1:], edges[pos:])
	edges[pos] = edge
	r.window.Edges = edges
}

func (r *WindowReconciler) refreshCursor() {
	if len(r.window.Edges) == 0 {
		r.window.PageInfo.EndCursor = 0
		r.window.PageInfo.HasNextPage = r.window.TotalCount > 0
		return
	}
	r.window.PageInfo.EndCursor = r.window.Edges[len(r.window.Edges)-1].Cursor
	r.window.PageInfo.HasNextPage = r.window.TotalCount > int64(len(r.window.Edges))
}

func findEdge(edges []txplore.PostEdge, id int64) int {
	for i, edge := range edges {
		if edge.Cursor == id {
			return i
		}
	}
	return -1
}

func cloneWindow(window txplore.PostWindow) txplore.PostWindow {
	out := window
	out.Edges = append([]txplore.PostEdge(nil), window.Edges...)
	return out
}
