package repository

import (
	"context"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

type taxonGormRepository struct {
	db *gorm.DB
}

func NewTaxonGormRepository(db *gorm.DB) repo.TaxonRepository {
	return &taxonGormRepository{db: db}
}

// (kind, slug)重複はErrDuplicate
func (r *taxonGormRepository) Create(ctx context.Context, t model.Taxon) (model.Taxon, error) {
	if err := r.db.WithContext(ctx).Create(&t).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Taxon{}, repo.ErrDuplicate
		}
		return model.Taxon{}, err
	}
	return t, nil
}

func (r *taxonGormRepository) Update(ctx context.Context, t model.Taxon) error {
	res := r.db.WithContext(ctx).
		Model(&model.Taxon{}).
		Where("id = ? AND kind = ?", t.ID, t.Kind).
		Updates(map[string]interface{}{
			"name":        t.Name,
			"slug":        t.Slug,
			"description": t.Description,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return repo.ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *taxonGormRepository) Delete(ctx context.Context, kind model.TaxonKind, id int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND kind = ?", id, kind).
		Delete(&model.Taxon{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *taxonGormRepository) FindByID(ctx context.Context, kind model.TaxonKind, id int64) (model.Taxon, error) {
	var t model.Taxon
	err := r.db.WithContext(ctx).
		Where("id = ? AND kind = ?", id, kind).
		First(&t).Error
	if isNotFound(err) {
		return model.Taxon{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Taxon{}, err
	}
	return t, nil
}

func (r *taxonGormRepository) ListByKind(ctx context.Context, kind model.TaxonKind) ([]model.Taxon, error) {
	var list []model.Taxon
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("name asc").
		Find(&list).Error; err != nil {
		return []model.Taxon{}, err
	}
	return list, nil
}

func (r *taxonGormRepository) CountByIDs(ctx context.Context, kind model.TaxonKind, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Taxon{}).
		Where("kind = ? AND id IN ?", kind, ids).
		Count(&n).Error
	return n, err
}
