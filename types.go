package txplore

import (
	"time"
)

// Topic names for the change notifier. Posts is the list-scoped topic,
// Post the single-record topic, Transactions the per-post child topic.
const (
	TopicPosts        = "posts"
	TopicPost         = "post"
	TopicTransactions = "transactions"
)

// Mutation tags the effect a change event describes.
type Mutation string

const (
	MutationCreated Mutation = "CREATED"
	MutationUpdated Mutation = "UPDATED"
	MutationDeleted Mutation = "DELETED"
)

type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Transaction struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	Content   string    `json:"content"`
	Balance   string    `json:"balance"`
	TimeStamp string    `json:"timeStamp"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event is the envelope carried on the change notifier and over the
// realtime stream. ID is always the affected record's id. PostID is set
// for transaction events only. Exactly one of Post/Transaction is set
// for CREATED/UPDATED; both may be nil for DELETED, in which case the
// id alone is authoritative.
type Event struct {
	Topic       string       `json:"topic"`
	Mutation    Mutation     `json:"mutation"`
	ID          int64        `json:"id"`
	PostID      int64        `json:"postId,omitempty"`
	Post        *Post        `json:"post,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

type PostEdge struct {
	Cursor int64 `json:"cursor"`
	Node   Post  `json:"node"`
}

type PageInfo struct {
	EndCursor   int64 `json:"endCursor"`
	HasNextPage bool  `json:"hasNextPage"`
}

// PostWindow is one fetched page of the post feed plus pagination
// metadata. Edges are ordered by id descending; EndCursor is the id of
// the last edge, or 0 when the window is empty.
type PostWindow struct {
	TotalCount int64      `json:"totalCount"`
	Edges      []PostEdge `json:"edges"`
	PageInfo   PageInfo   `json:"pageInfo"`
}

// NewPostInput carries the caller-supplied fields for creating a post.
type NewPostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// EditPostInput carries a partial update. Nil fields are left untouched.
type EditPostInput struct {
	ID      int64   `json:"id"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

type NewTransactionInput struct {
	PostID    int64  `json:"postId"`
	Content   string `json:"content"`
	Balance   string `json:"balance"`
	TimeStamp string `json:"timeStamp"`
}

type EditTransactionInput struct {
	ID      int64   `json:"id"`
	PostID  int64   `json:"postId"`
	Content *string `json:"content,omitempty"`
	Balance *string `json:"balance,omitempty"`
}

// DeleteResult reports the id removed by a delete mutation.
type DeleteResult struct {
	ID int64 `json:"id"`
}
