package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/benny59/architetti/internal/logger"
	"github.com/benny59/architetti/internal/model"
)

const seenKeyPrefix = "architetti:seen:"

// CachedStore answers Exists from a Redis set per source before falling back
// to the wrapped store. The SQL partition stays authoritative: Redis errors
// are logged and ignored, and a set that knows checksums the partition does
// not hold is dropped before it is first consulted.
type CachedStore struct {
	Store
	rdb       *redis.Client
	namespace string
	log       logger.Logger

	checked sync.Map // nickname → struct{}
}

// NewCachedStore decorates inner with the Redis seen-checksum cache. Sets are
// keyed by namespace so that databases sharing one Redis never share sets.
func NewCachedStore(inner Store, rdb *redis.Client, namespace string, log logger.Logger) *CachedStore {
	return &CachedStore{
		Store:     inner,
		rdb:       rdb,
		namespace: namespace,
		log:       log.With(logger.Component("seen-cache")),
	}
}

// Namespace derives a short, stable cache namespace from the database
// connection settings.
func Namespace(driver, dsn string) string {
	h := fnv.New32a()
	h.Write([]byte(driver + "|" + dsn))
	return fmt.Sprintf("%08x", h.Sum32())
}

// SeenKey is the Redis set holding the known checksums of a source.
func SeenKey(namespace, nickname string) string {
	return seenKeyPrefix + namespace + ":" + nickname
}

// EnsurePartitions creates the partitions, then drops any seen set that
// disagrees with its partition.
func (c *CachedStore) EnsurePartitions(ctx context.Context, nicknames []string) error {
	if err := c.Store.EnsurePartitions(ctx, nicknames); err != nil {
		return err
	}
	for _, nick := range nicknames {
		c.reconcile(ctx, nick)
	}
	return nil
}

// Exists checks the cache first and backfills it on a store hit.
func (c *CachedStore) Exists(ctx context.Context, nickname, checksum string) (bool, error) {
	if err := ValidatePartition(nickname); err != nil {
		return false, err
	}
	c.reconcile(ctx, nickname)

	hit, err := c.rdb.SIsMember(ctx, c.key(nickname), checksum).Result()
	switch {
	case err != nil:
		c.log.Warn("Seen cache lookup failed",
			logger.String("source", nickname),
			logger.Error(err),
		)
	case hit:
		return true, nil
	}

	found, err := c.Store.Exists(ctx, nickname, checksum)
	if err != nil {
		return false, err
	}
	if found {
		c.remember(ctx, nickname, checksum)
	}
	return found, nil
}

// Insert writes through to the store, then records the checksum as seen.
func (c *CachedStore) Insert(ctx context.Context, nickname string, rec model.Record) error {
	if err := c.Store.Insert(ctx, nickname, rec); err != nil {
		return err
	}
	c.remember(ctx, nickname, rec.Checksum)
	return nil
}

func (c *CachedStore) key(nickname string) string {
	return SeenKey(c.namespace, nickname)
}

// reconcile runs once per partition and process. The set only ever holds
// checksums read from or written to the partition, so more members than rows
// means the set outlived its database.
func (c *CachedStore) reconcile(ctx context.Context, nickname string) {
	if _, done := c.checked.Load(nickname); done {
		return
	}

	members, err := c.rdb.SCard(ctx, c.key(nickname)).Result()
	if err != nil {
		c.log.Warn("Seen cache size check failed", logger.String("source", nickname), logger.Error(err))
		return
	}
	rows, err := c.Store.Count(ctx, nickname)
	if err != nil {
		c.log.Warn("Partition count failed", logger.String("source", nickname), logger.Error(err))
		return
	}

	if members > int64(rows) {
		if err := c.rdb.Del(ctx, c.key(nickname)).Err(); err != nil {
			c.log.Warn("Seen cache reset failed", logger.String("source", nickname), logger.Error(err))
			return
		}
		c.log.Warn("Stale seen cache dropped",
			logger.String("source", nickname),
			logger.Int64("members", members),
			logger.Int("rows", rows),
		)
	}
	c.checked.Store(nickname, struct{}{})
}

func (c *CachedStore) remember(ctx context.Context, nickname, checksum string) {
	if err := c.rdb.SAdd(ctx, c.key(nickname), checksum).Err(); err != nil {
		c.log.Warn("Seen cache update failed",
			logger.String("source", nickname),
			logger.Error(err),
		)
	}
}
