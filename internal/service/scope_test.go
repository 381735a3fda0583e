package service

import (
	"testing"

	"github.com/txplore/txplore"
)

func TestScopeAllAfter(t *testing.T) {
	scope := AllAfter(3)

	cases := []struct {
		id   int64
		want bool
	}{
		{1, false},
		{2, false},
		{3, true},
		{5, true},
	}
	for _, c := range cases {
		ev := txplore.Event{Mutation: txplore.MutationUpdated, ID: c.id}
		if scope.Matches(ev) != c.want {
			t.Fatalf("AllAfter(3) on id %d: expected %v", c.id, c.want)
		}
	}

	// cursor 0 means "subscribed from the top", everything matches
	if !AllAfter(0).Matches(txplore.Event{ID: 5}) {
		t.Fatalf("AllAfter(0) should match every id")
	}
}

func TestScopeExactID(t *testing.T) {
	scope := ExactID(7)

	if !scope.Matches(txplore.Event{ID: 7}) {
		t.Fatalf("expected match on watched id")
	}
	if scope.Matches(txplore.Event{ID: 8}) {
		t.Fatalf("expected no match on other id")
	}
}

func TestScopeChildrenOf(t *testing.T) {
	scope := ChildrenOf(2)

	if !scope.Matches(txplore.Event{ID: 10, PostID: 2}) {
		t.Fatalf("expected match on watched parent")
	}
	if scope.Matches(txplore.Event{ID: 10, PostID: 3}) {
		t.Fatalf("expected no match on other parent")
	}
}

func TestScopeEverything(t *testing.T) {
	if !Everything().Matches(txplore.Event{ID: 1}) {
		t.Fatalf("everything scope should match")
	}
}
