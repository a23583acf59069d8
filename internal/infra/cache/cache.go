package cache

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	"marketplace/internal/repository"
)

var ErrCacheMiss = errors.New("cache miss")

// REDIS_ADDRが空のとき用。DBをそのまま読む
type PassthroughProductCache struct {
	reader repository.ProductReader
}

func NewPassthroughProductCache(reader repository.ProductReader) *PassthroughProductCache {
	return &PassthroughProductCache{reader: reader}
}

func (p *PassthroughProductCache) FindByID(ctx context.Context, id int64) (model.Product, error) {
	return p.reader.FindByID(ctx, id)
}

func (p *PassthroughProductCache) Invalidate(ctx context.Context, productID int64) error {
	return nil
}
