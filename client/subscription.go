package client

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/txplore/txplore"
)

// Subscription is one long-lived realtime stream. Events arrive on
// Events until Close is called or the connection drops; Close is
// idempotent.
type Subscription struct {
	conn   *websocket.Conn
	events chan txplore.Event
	once   sync.Once
	done   chan struct{}
}

func (s *Subscription) Events() <-chan txplore.Event {
	return s.events
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

type subscribeRequest struct {
	Type   string `json:"type"`
	Stream string `json:"stream"`
	Cursor int64  `json:"cursor,omitempty"`
	ID     int64  `json:"id,omitempty"`
	PostID int64  `json:"postId,omitempty"`
}

func (c *Client) realtimeURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/realtime"
	return u.String(), nil
}

func (c *Client) subscribe(ctx context.Context, req subscribeRequest) (*Subscription, error) {

	wsURL, err := c.realtimeURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, err
	}

	sub := &Subscription{
		conn:   conn,
		events: make(chan txplore.Event, 16),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.events)
		for {
			var ev txplore.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case sub.events <- ev:
			case <-sub.done:
				return
			}
		}
	}()

	return sub, nil
}

// SubscribeList streams list changes for records at or after cursor.
func (c *Client) SubscribeList(ctx context.Context, cursor int64) (*Subscription, error) {
	return c.subscribe(ctx, subscribeRequest{
		Type: "subscribe", Stream: txplore.TopicPosts, Cursor: cursor,
	})
}

// SubscribeOne streams changes for a single post.
func (c *Client) SubscribeOne(ctx context.Context, id int64) (*Subscription, error) {
	return c.subscribe(ctx, subscribeRequest{
		Type: "subscribe", Stream: txplore.TopicPost, ID: id,
	})
}

// SubscribeChildren streams transaction changes of one post.
func (c *Client) SubscribeChildren(ctx context.Context, postID int64) (*Subscription, error) {
	return c.subscribe(ctx, subscribeRequest{
		Type: "subscribe", Stream: txplore.TopicTransactions, PostID: postID,
	})
}
