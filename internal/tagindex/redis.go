package tagindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
)

const defaultKeyPrefix = "tagindex"

// RedisIndex stores the relation as two families of Redis sets:
// <prefix>:tag:<tag> holds trip ids and <prefix>:trip:<id> holds tags.
// <prefix>:trips lists every indexed trip. Lets several API replicas share one index.
type RedisIndex struct {
	client *redis.Client
	prefix string
}

// NewRedisIndex creates an index on client. An empty prefix uses "tagindex".
func NewRedisIndex(client *redis.Client, prefix string) *RedisIndex {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisIndex{client: client, prefix: prefix}
}

func (r *RedisIndex) tagKey(tag string) string {
	return r.prefix + ":tag:" + tag
}

func (r *RedisIndex) tripKey(tripID string) string {
	return r.prefix + ":trip:" + tripID
}

func (r *RedisIndex) tripsKey() string {
	return r.prefix + ":trips"
}

func (r *RedisIndex) TagsOf(ctx context.Context, tripID string) ([]string, error) {
	tags, err := r.client.SMembers(ctx, r.tripKey(tripID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read trip tags: %w", err)
	}
	sort.Strings(tags)
	return tags, nil
}

func (r *RedisIndex) TripsMatchingAny(ctx context.Context, keywords []string) ([]string, error) {
	keywords = NormalizeAll(keywords)
	if len(keywords) == 0 {
		return []string{}, nil
	}

	keys := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		keys = append(keys, r.tagKey(kw))
	}

	ids, err := r.client.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to union tag sets: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Put swaps the trip's tag set inside MULTI/EXEC so readers never see a half-applied update
func (r *RedisIndex) Put(ctx context.Context, tripID string, tags []string) error {
	tags = NormalizeAll(tags)

	old, err := r.client.SMembers(ctx, r.tripKey(tripID)).Result()
	if err != nil {
		return fmt.Errorf("failed to read trip tags: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, tag := range old {
			pipe.SRem(ctx, r.tagKey(tag), tripID)
		}
		pipe.Del(ctx, r.tripKey(tripID))
		if len(tags) == 0 {
			pipe.SRem(ctx, r.tripsKey(), tripID)
			return nil
		}

		members := make([]interface{}, 0, len(tags))
		for _, tag := range tags {
			members = append(members, tag)
			pipe.SAdd(ctx, r.tagKey(tag), tripID)
		}
		pipe.SAdd(ctx, r.tripKey(tripID), members...)
		pipe.SAdd(ctx, r.tripsKey(), tripID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index trip tags: %w", err)
	}
	return nil
}

func (r *RedisIndex) Remove(ctx context.Context, tripID string) error {
	return r.Put(ctx, tripID, nil)
}

func (r *RedisIndex) Trips(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.tripsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed trips: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Reset deletes every key under the prefix. Only for tearing an index down:
// live readers would see it empty.
func (r *RedisIndex) Reset(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+":*", 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to delete index keys: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan index keys: %w", err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to delete index keys: %w", err)
		}
	}
	return nil
}
