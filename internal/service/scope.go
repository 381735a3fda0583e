package service

import (
	"github.com/txplore/txplore"
)

// ScopeKind discriminates the subscription filter variants.
type ScopeKind int

const (
	// ScopeEverything matches every event. Zero value; used by
	// infrastructure listeners such as the redis bridge and caches.
	ScopeEverything ScopeKind = iota
	// ScopeAllAfter matches list events at or after a cursor.
	ScopeAllAfter
	// ScopeExactID matches events for one record id.
	ScopeExactID
	// ScopeChildrenOf matches child events of one post.
	ScopeChildrenOf
)

// Scope is a subscription relevance predicate expressed as data, so
// filters can be tested without constructing live subscriptions.
type Scope struct {
	Kind   ScopeKind
	Cursor int64
	ID     int64
	PostID int64
}

func Everything() Scope { return Scope{Kind: ScopeEverything} }

// AllAfter scopes a list subscription to records the observer has
// already paged through: an event is relevant iff cursor <= event id.
// Updates to records older than the cursor are intentionally dropped.
func AllAfter(cursor int64) Scope { return Scope{Kind: ScopeAllAfter, Cursor: cursor} }

func ExactID(id int64) Scope { return Scope{Kind: ScopeExactID, ID: id} }

func ChildrenOf(postID int64) Scope { return Scope{Kind: ScopeChildrenOf, PostID: postID} }

func (s Scope) Matches(ev txplore.Event) bool {
	switch s.Kind {
	case ScopeAllAfter:
		return s.Cursor <= ev.ID
	case ScopeExactID:
		return ev.ID == s.ID
	case ScopeChildrenOf:
		return ev.PostID == s.PostID
	default:
		return true
	}
}
