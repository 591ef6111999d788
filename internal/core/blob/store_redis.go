// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/manhwaty/internal/core/asset"
	redisclient "github.com/taibuivan/manhwaty/internal/platform/redis"
)

const (
	redisFieldType = "type"
	redisFieldData = "data"
)

// RedisBackend stores each asset as a hash "<namespace>:<key>" with type and data fields.
type RedisBackend struct {
	client    *redis.Client
	namespace string
}

// NewRedisBackend wraps a connected client.
func NewRedisBackend(client *redis.Client, namespace string) *RedisBackend {
	return &RedisBackend{client: client, namespace: namespace}
}

func (backend *RedisBackend) redisKey(key string) string {
	return backend.namespace + ":" + key
}

func (backend *RedisBackend) Put(context context.Context, key string, a asset.Asset) error {
	return backend.client.HSet(context, backend.redisKey(key),
		redisFieldType, a.MediaType,
		redisFieldData, a.Data,
	).Err()
}

func (backend *RedisBackend) Get(context context.Context, key string) (*asset.Asset, error) {
	values, err := backend.client.HMGet(context, backend.redisKey(key), redisFieldType, redisFieldData).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	data, ok := values[1].(string)
	if !ok {
		return nil, nil
	}
	mediaType, _ := values[0].(string)

	return &asset.Asset{Data: []byte(data), MediaType: mediaType}, nil
}

func (backend *RedisBackend) Delete(context context.Context, key string) error {
	return backend.client.Unlink(context, backend.redisKey(key)).Err()
}

// Reset unlinks every key under the namespace prefix.
func (backend *RedisBackend) Reset(context context.Context) error {
	if _, err := redisclient.UnlinkMatching(context, backend.client, backend.namespace+":*"); err != nil {
		return fmt.Errorf("blob: reset namespace: %w", err)
	}
	return nil
}

func (backend *RedisBackend) Ping(context context.Context) error {
	return redisclient.Ping(context, backend.client)
}

func (backend *RedisBackend) Close() error {
	return backend.client.Close()
}
