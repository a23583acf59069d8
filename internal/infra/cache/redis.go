package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/repository"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// 商品詳細の読み取りキャッシュ。書き込み側はInvalidateで消す
type RedisProductCache struct {
	client  *redis.Client
	reader  repository.ProductReader
	baseTTL time.Duration
	group   singleflight.Group
}

func NewRedisProductCache(client *redis.Client, reader repository.ProductReader, baseTTL time.Duration) *RedisProductCache {
	if baseTTL <= 0 {
		baseTTL = 10 * time.Minute
	}
	return &RedisProductCache{
		client:  client,
		reader:  reader,
		baseTTL: baseTTL,
	}
}

// キャッシュ → 無ければDB。同じIDの同時ミスは1回のDB読み込みにまとめる。
// Redisが落ちていてもDBから返す
func (r *RedisProductCache) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, err := r.get(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		slog.WarnContext(ctx, "product cache get failed", "product_id", id, "err", err)
	}

	//読み込みは相乗りした全員のもの。先頭の呼び出し元のキャンセルで止めない
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		p, err := r.reader.FindByID(loadCtx, id)
		if err != nil {
			return model.Product{}, err
		}
		if err := r.set(loadCtx, p); err != nil {
			slog.WarnContext(loadCtx, "product cache set failed", "product_id", id, "err", err)
		}
		return p, nil
	})

	select {
	case <-ctx.Done():
		return model.Product{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.Product{}, res.Err
		}
		return res.Val.(model.Product), nil
	}
}

func (r *RedisProductCache) Invalidate(ctx context.Context, productID int64) error {
	if err := r.client.Del(ctx, cacheKey(productID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisProductCache) get(ctx context.Context, id int64) (model.Product, error) {
	data, err := r.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Product{}, ErrCacheMiss
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("redis get failed: %w", err)
	}

	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Product{}, fmt.Errorf("unmarshal product failed: %w", err)
	}
	return p, nil
}

func (r *RedisProductCache) set(ctx context.Context, p model.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	//期限切れが同時に来ないよう少しずらす
	jitter := time.Duration(rand.Int63n(int64(r.baseTTL)/5 + 1))
	if err := r.client.Set(ctx, cacheKey(p.ID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func cacheKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}
