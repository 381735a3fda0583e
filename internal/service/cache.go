package service

import (
	"encoding/json"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/txplore/txplore"
)

const postCacheTTL = 60 // seconds

// PostCache is a memcached read-through cache for point post lookups.
// Watch keeps it coherent by dropping entries when the notifier reports
// an update or delete.
type PostCache struct {
	mc *memcache.Client
}

func NewPostCache(mc *memcache.Client) *PostCache {
	return &PostCache{mc: mc}
}

func postKey(id int64) string {
	return fmt.Sprintf("txplore:post:%d", id)
}

func (c *PostCache) Get(id int64) (txplore.Post, bool) {
	item, err := c.mc.Get(postKey(id))
	if err != nil {
		return txplore.Post{}, false
	}
	var post txplore.Post
	if err := json.Unmarshal(item.Value, &post); err != nil {
		return txplore.Post{}, false
	}
	return post, true
}

func (c *PostCache) Set(post txplore.Post) {
	payload, err := json.Marshal(post)
	if err != nil {
		return
	}
	_ = c.mc.Set(&memcache.Item{
		Key:        postKey(post.ID),
		Value:      payload,
		Expiration: postCacheTTL,
	})
}

func (c *PostCache) invalidate(ev txplore.Event) {
	if ev.Mutation == txplore.MutationCreated {
		return
	}
	_ = c.mc.Delete(postKey(ev.ID))
}

// Watch subscribes the cache to post change topics. The returned cancel
// detaches it.
func (c *PostCache) Watch(n *Notifier) func() {
	cancelPost := n.Subscribe(txplore.TopicPost, Everything(), c.invalidate)
	cancelPosts := n.Subscribe(txplore.TopicPosts, Everything(), c.invalidate)
	return func() {
		cancelPost()
		cancelPosts()
	}
}
