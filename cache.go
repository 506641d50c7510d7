package travelblog

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	redisPostsKey   = "travelblog:posts"
	redisVersionKey = "travelblog:posts:version"
)

// postsKey is where the listing for a given shared version lives. Bumping
// the version orphans every older listing, including one written late by a
// reload that started before the bump.
func postsKey(version int64) string {
	return redisPostsKey + ":v" + strconv.FormatInt(version, 10)
}

// postLister is the slice of Store the cache reads through.
type postLister interface {
	ListPosts(ctx context.Context) ([]BlogPost, error)
}

// PostCache is an in-memory cache of the post listing with TTL. When a redis
// client is configured it is used as a second tier shared between processes,
// and a version counter in redis tells each process when its memory tier was
// invalidated elsewhere.
type PostCache struct {
	mu      sync.RWMutex
	posts   []BlogPost
	fetched time.Time
	version int64
	ttl     time.Duration
	store   postLister
	rdb     *redis.Client
	log     *logrus.Logger

	// onReload, when set, is called after every database read.
	onReload func()
}

// NewPostCache creates a PostCache backed by the given store. rdb may be nil.
func NewPostCache(s postLister, ttl time.Duration, rdb *redis.Client, log *logrus.Logger) *PostCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PostCache{store: s, ttl: ttl, rdb: rdb, log: log}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

func (c *PostCache) fresh(version int64, shared bool) bool {
	return c.valid() && (!shared || c.version == version)
}

// sharedVersion reads the invalidation counter. shared is false when there
// is no redis tier or it cannot be reached; the memory tier then stands alone.
func (c *PostCache) sharedVersion(ctx context.Context) (version int64, shared bool) {
	if c.rdb == nil {
		return 0, false
	}
	v, err := c.rdb.Get(ctx, redisVersionKey).Int64()
	switch {
	case err == redis.Nil:
		return 0, true
	case err != nil:
		c.log.WithError(err).Warn("post cache: redis version read failed")
		return 0, false
	}
	return v, true
}

// Invalidate clears the local tier and bumps the shared version so every
// process reloads on its next read.
func (c *PostCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
	if c.rdb != nil {
		if err := c.rdb.Incr(ctx, redisVersionKey).Err(); err != nil {
			c.log.WithError(err).Warn("post cache: redis invalidate failed")
		}
	}
}

func (c *PostCache) load(ctx context.Context, version int64, shared bool) error {
	if c.fresh(version, shared) {
		return nil
	}
	if shared {
		if posts, ok := c.fromRedis(ctx, version); ok {
			c.posts = posts
			c.fetched = time.Now()
			c.version = version
			return nil
		}
	}
	posts, err := c.store.ListPosts(ctx)
	if err != nil {
		return err
	}
	if c.onReload != nil {
		c.onReload()
	}
	if posts == nil {
		posts = []BlogPost{}
	}
	c.posts = posts
	c.fetched = time.Now()
	c.version = version
	if shared {
		c.toRedis(ctx, version, posts)
	}
	return nil
}

func (c *PostCache) fromRedis(ctx context.Context, version int64) ([]BlogPost, bool) {
	b, err := c.rdb.Get(ctx, postsKey(version)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("post cache: redis read failed")
		}
		return nil, false
	}
	var posts []BlogPost
	if err := json.Unmarshal(b, &posts); err != nil {
		c.log.WithError(err).Warn("post cache: bad redis payload")
		return nil, false
	}
	return posts, true
}

func (c *PostCache) toRedis(ctx context.Context, version int64, posts []BlogPost) {
	b, err := json.Marshal(posts)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, postsKey(version), b, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("post cache: redis write failed")
	}
}

// ensureLoaded returns cached posts after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]BlogPost, error) {
	version, shared := c.sharedVersion(ctx)

	c.mu.RLock()
	if c.fresh(version, shared) {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx, version, shared); err != nil {
		return nil, err
	}
	return c.posts, nil
}

// ListPosts returns all posts, optionally filtered by author display name
// (case-insensitive).
func (c *PostCache) ListPosts(ctx context.Context, author string) ([]BlogPost, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if author == "" {
		return posts, nil
	}
	normalized := normalizeName(author)
	var filtered []BlogPost
	for _, p := range posts {
		if normalizeName(p.Author.Name) == normalized {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
