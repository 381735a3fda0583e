package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/txplore/txplore"
)

const defaultTimeout = 10 * time.Second

// Client talks to a txplore server. Point post lookups are cached
// briefly; mutations and events for a post drop its cache entry.
type Client struct {
	client  *http.Client
	cache   *cache.Cache
	baseURL string
}

func New(baseURL string) *Client {
	return &Client{
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		cache:   cache.New(1*time.Minute, 5*time.Minute),
		baseURL: baseURL,
	}
}

func (c *Client) request(ctx context.Context, method, path string, body any, response any) error {

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrRejected
	case http.StatusConflict:
		return ErrRejected
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if response == nil {
		return nil
	}
	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

func postCacheKey(id int64) string {
	return fmt.Sprintf("post:%d", id)
}

func (c *Client) Paginate(ctx context.Context, limit int, after int64) (txplore.PostWindow, error) {
	var window txplore.PostWindow
	path := fmt.Sprintf("/api/posts?limit=%d&after=%d", limit, after)
	err := c.request(ctx, http.MethodGet, path, nil, &window)
	return window, err
}

func (c *Client) GetPost(ctx context.Context, id int64) (txplore.Post, error) {
	if cached, found := c.cache.Get(postCacheKey(id)); found {
		return cached.(txplore.Post), nil
	}

	var post txplore.Post
	err := c.request(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil, &post)
	if err != nil {
		return txplore.Post{}, err
	}
	c.cache.Set(postCacheKey(id), post, cache.DefaultExpiration)
	return post, nil
}

func (c *Client) GetTransactions(ctx context.Context, postID int64) ([]txplore.Transaction, error) {
	var transactions []txplore.Transaction
	err := c.request(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d/transactions", postID), nil, &transactions)
	return transactions, err
}

// GetTransactionsBatched loads the transactions of several posts in one
// round trip, keyed by the requested ids.
func (c *Client) GetTransactionsBatched(ctx context.Context, postIDs []int64) (map[int64][]txplore.Transaction, error) {
	if len(postIDs) == 0 {
		return map[int64][]txplore.Transaction{}, nil
	}

	path := "/api/transactions?postIds="
	for i, id := range postIDs {
		if i > 0 {
			path += ","
		}
		path += fmt.Sprintf("%d", id)
	}

	var grouped map[int64][]txplore.Transaction
	err := c.request(ctx, http.MethodGet, path, nil, &grouped)
	return grouped, err
}

func (c *Client) CreatePost(ctx context.Context, input txplore.NewPostInput) (txplore.Post, error) {
	var post txplore.Post
	err := c.request(ctx, http.MethodPost, "/api/posts", input, &post)
	return post, err
}

func (c *Client) EditPost(ctx context.Context, input txplore.EditPostInput) (txplore.Post, error) {
	var post txplore.Post
	err := c.request(ctx, http.MethodPut, fmt.Sprintf("/api/posts/%d", input.ID), input, &post)
	if err == nil {
		c.cache.Delete(postCacheKey(input.ID))
	}
	return post, err
}

func (c *Client) DeletePost(ctx context.Context, id int64) (txplore.DeleteResult, error) {
	var result txplore.DeleteResult
	err := c.request(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), nil, &result)
	if err == nil {
		c.cache.Delete(postCacheKey(id))
	}
	return result, err
}

func (c *Client) AddTransaction(ctx context.Context, input txplore.NewTransactionInput) (txplore.Transaction, error) {
	var transaction txplore.Transaction
	err := c.request(ctx, http.MethodPost, "/api/transactions", input, &transaction)
	return transaction, err
}

func (c *Client) EditTransaction(ctx context.Context, input txplore.EditTransactionInput) (txplore.Transaction, error) {
	var transaction txplore.Transaction
	err := c.request(ctx, http.MethodPut, fmt.Sprintf("/api/transactions/%d", input.ID), input, &transaction)
	return transaction, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) (txplore.DeleteResult, error) {
	var result txplore.DeleteResult
	err := c.request(ctx, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", id), nil, &result)
	return result, err
}
