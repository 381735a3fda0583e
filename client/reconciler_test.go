package client

import (
	"reflect"
	"testing"

	"github.com/txplore/txplore"
)

func loadedWindow() txplore.PostWindow {
	return txplore.PostWindow{
		TotalCount: 4,
		Edges: []txplore.PostEdge{
			{Cursor: 4, Node: txplore.Post{ID: 4, Title: "d", Content: "4"}},
			{Cursor: 3, Node: txplore.Post{ID: 3, Title: "c", Content: "3"}},
		},
		PageInfo: txplore.PageInfo{EndCursor: 3, HasNextPage: true},
	}
}

func createdEvent(id int64) txplore.Event {
	return txplore.Event{
		Mutation: txplore.MutationCreated,
		ID:       id,
		Post:     &txplore.Post{ID: id, Title: "new", Content: "n"},
	}
}

func edgeIDs(window txplore.PostWindow) []int64 {
	ids := make([]int64, 0, len(window.Edges))
	for _, edge := range window.Edges {
		ids = append(ids, edge.Cursor)
	}
	return ids
}

func TestApplyCreatedKeepsDescendingOrder(t *testing.T) {
	r := NewWindowReconciler()
	r.Load(loadedWindow())

	r.Apply(createdEvent(5))

	window := r.Window()
	if !reflect.DeepEqual(edgeIDs(window), []int64{5, 4, 3}) {
		t.Fatalf("unexpected order %v", edgeIDs(window))
	}
	if window.TotalCount != 5 {
		t.Fatalf("expected total 5, got %d", window.TotalCount)
	}
	if window.PageInfo.EndCursor != 3 {
		t.Fatalf("unexpected end cursor %d", window.PageInfo.EndCursor)
	}
}

func TestApplyCreatedIdempotent(t *testing.T) {
	r := NewWindowReconciler()
	r.Load(loadedWindow())

	r.Apply(createdEvent(5))
	once := r.Window()

	r.Apply(createdEvent(5))
	twice := r.Window()

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("duplicate delivery changed the window:\n%+v\n%+v", once, twice)
	}
}

func TestApplyUpdatedAbsentIgnored(t *testing.T) {
	r := NewWindowReconciler()
	r.Load(loadedWindow())

	r.Apply(txplore.Event{
		Mutation: txplore.MutationUpdated,
		ID:       1, // paged past, never loaded
		Post:     &txplore.Post{ID: 1, Title: "ghost"},
	})

	window := r.Window()
	if !reflect.DeepEqual(edgeIDs(window), []int64{4, 3}) {
		t.Fatalf("update for unloaded record must not insert: %v", edgeIDs(window))
	}
}

func TestApplyUpdatedInPlace(t *testing.T) {
	r := NewWindowReconciler()
	r.Load(loadedWindow())

	r.Apply(txplore.Event{
		Mutation: txplore.MutationUpdated,
		ID:       3,
		Post:     &txplore.Post{ID: 3, Title: "edited", Content: "3"},
	})

	window := r.Window()
	if window.Edges[1].Node.Title != "edited" {
		t.Fatalf("expected in-place update, got %+v", window.Edges[1])
	}
	if !reflect.DeepEqual(edgeIDs(window), []int64{4, 3}) {
		t.Fatalf("position must not change: %v", edgeIDs(window))
	}
}

func TestApplyDeleted(t *testing.T) {
	r := NewWindowReconciler()
	r.Load(loadedWindow())

	r.Apply(txplore.Event{Mutation: txplore.MutationDeleted, ID: 4})

	window := r.Window()
	if !reflect.DeepEqual(edgeIDs(window), []int64{3}) {
		t.Fatalf("unexpected edges %v", edgeIDs(window))
	}
	if window.TotalCount != 3 {
		t.Fatalf("expected total 3, got %d", window.TotalCount)
	}
	if window.PageInfo.EndCursor != 3 || !window.PageInfo.HasNextPage {
		t.Fatalf("unexpected page info %+v", window.PageInfo)
	}

	// second delivery is a no-op
	r.Apply(txplore.Event{Mutation: txplore.MutationDeleted, ID: 4})
	if r.Window().TotalCount != 3 {
		t.Fatalf("duplicate delete must not decrement again")
	}
}

func TestOptimisticCreateConfirmedByEvent(t *testing.T) {
	r := NewWindowReconciler()
	r.Load(loadedWindow())

	r.ApplyOptimistic(txplore.MutationCreated, txplore.Post{Title: "new", Content: "n"})

	window := r.Window()
	if len(window.Edges) != 3 || window.Edges[0].Cursor != 0 {
		t.Fatalf("expected placeholder at front, got %v", edgeIDs(window))
	}
	if window.TotalCount != 5 {
		t.Fatalf("expected optimistic count bump, got %d", window.TotalCount)
	}

	r.Apply(createdEvent(5))

	window = r.Window()
	if !reflect.DeepEqual(edgeIDs(window), []int64{5, 4, 3}) {
		t.Fatalf("expected exactly one confirmed entry, got %v", edgeIDs(window))
	}
	if window.TotalCount != 5 {
		t.Fatalf("confirmation must not double-count, got %d", window.TotalCount)
	}
}

func TestOptimisticCreateConfirmedByResponseThenEvent(t *testing.T) {
	r := NewWindowReconciler()
	r.Load(loadedWindow())

	token := r.ApplyOptimistic(txplore.MutationCreated, txplore.Post{Title: "new", Content: "n"})
	confirmed := txplore.Post{ID: 5, Title: "new", Content: "n"}
	r.Resolve(token, PostOutcome{Post: &confirmed})

	// the change event for our own mutation arrives afterwards
	r.Apply(createdEvent(5))

	window := r.Window()
	if !reflect.DeepEqual(edgeIDs(window), []int64{5, 4, 3}) {
		t.Fatalf("expected single entry for id 5, got %v", edgeIDs(window))
	}
	if window.TotalCount != 5 {
		t.Fatalf("unexpected total %d", window.TotalCount)
	}
}

func TestOptimisticCreateEventBeforeResponse(t *testing.T) {
	r := NewWindowReconciler()
	r.Load(loadedWindow())

	token := r.ApplyOptimistic(txplore.MutationCreated, txplore.Post{Title: "new", Content: "n"})
	r.Apply(createdEvent(5))

	confirmed := txplore.Post{ID: 5, Title: "new", Content: "n"}
	r.Resolve(token, PostOutcome{Post: &confirmed})

	window := r.Window()
	if !reflect.DeepEqual(edgeIDs(window), []int64{5, 4, 3}) {
		t.Fatalf("expected single entry for id 5, got %v", edgeIDs(window))
	}
}

func TestOptimisticFailureRollsBackExactly(t *testing.T) {
	r := NewWindowReconciler()
	before := loadedWindow()
	r.Load(before)

	token := r.ApplyOptimistic(txplore.MutationCreated, txplore.Post{Title: "doomed"})
	r.Resolve(token, PostOutcome{Err: ErrRejected})

	if !reflect.DeepEqual(r.Window(), before) {
		t.Fatalf("window not restored:\nwant %+v\ngot  %+v", before, r.Window())
	}
}

func TestOptimisticDeleteThenEvent(t *testing.T) {
	r := NewWindowReconciler()
	r.Load(loadedWindow())

	token := r.ApplyOptimistic(txplore.MutationDeleted, txplore.Post{ID: 4})
	if !reflect.DeepEqual(edgeIDs(r.Window()), []int64{3}) {
		t.Fatalf("optimistic delete not applied")
	}

	r.Resolve(token, PostOutcome{Post: &txplore.Post{ID: 4}})
	// event for our own delete: already gone, must be ignored
	r.Apply(txplore.Event{Mutation: txplore.MutationDeleted, ID: 4})

	window := r.Window()
	if !reflect.DeepEqual(edgeIDs(window), []int64{3}) || window.TotalCount != 3 {
		t.Fatalf("unexpected window %+v", window)
	}
}

func TestOptimisticUpdateFailureRestoresPayload(t *testing.T) {
	r := NewWindowReconciler()
	before := loadedWindow()
	r.Load(before)

	token := r.ApplyOptimistic(txplore.MutationUpdated, txplore.Post{ID: 3, Title: "edited", Content: "3"})
	if r.Window().Edges[1].Node.Title != "edited" {
		t.Fatalf("optimistic update not applied")
	}

	r.Resolve(token, PostOutcome{Err: ErrRejected})
	if !reflect.DeepEqual(r.Window(), before) {
		t.Fatalf("rollback incomplete: %+v", r.Window())
	}
}

func TestAppendPage(t *testing.T) {
	r := NewWindowReconciler()
	r.Load(loadedWindow())

	r.Append(txplore.PostWindow{
		TotalCount: 4,
		Edges: []txplore.PostEdge{
			{Cursor: 2, Node: txplore.Post{ID: 2}},
			{Cursor: 1, Node: txplore.Post{ID: 1}},
		},
		PageInfo: txplore.PageInfo{EndCursor: 1, HasNextPage: false},
	})

	window := r.Window()
	if !reflect.DeepEqual(edgeIDs(window), []int64{4, 3, 2, 1}) {
		t.Fatalf("unexpected feed %v", edgeIDs(window))
	}
	if window.PageInfo.HasNextPage {
		t.Fatalf("expected exhausted feed")
	}
}
