package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type TaxonRepository interface {
	Create(ctx context.Context, t model.Taxon) (model.Taxon, error)
	Update(ctx context.Context, t model.Taxon) error
	Delete(ctx context.Context, kind model.TaxonKind, id int64) error
	FindByID(ctx context.Context, kind model.TaxonKind, id int64) (model.Taxon, error)
	ListByKind(ctx context.Context, kind model.TaxonKind) ([]model.Taxon, error)
	// idsのうち、その種類で存在する件数
	CountByIDs(ctx context.Context, kind model.TaxonKind, ids []int64) (int64, error)
}
