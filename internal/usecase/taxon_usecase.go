package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/samber/lo"
)

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// カテゴリ・ブランド・サイズ・カラー・素材・タグの管理
type TaxonUsecase struct {
	taxons repo.TaxonRepository
}

func NewTaxonUsecase(taxons repo.TaxonRepository) *TaxonUsecase {
	return &TaxonUsecase{taxons: taxons}
}

type TaxonInput struct {
	Name        string `validate:"required,max=255"`
	Slug        string `validate:"max=255"`
	Description string
}

func (u *TaxonUsecase) List(ctx context.Context, kind model.TaxonKind) ([]model.Taxon, error) {
	list, err := u.taxons.ListByKind(ctx, kind)
	if err != nil {
		return nil, internalError(err)
	}
	return list, nil
}

func (u *TaxonUsecase) Get(ctx context.Context, kind model.TaxonKind, id int64) (model.Taxon, error) {
	if id <= 0 {
		return model.Taxon{}, validationError("invalid id")
	}
	t, err := u.taxons.FindByID(ctx, kind, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Taxon{}, notFoundError("%s not found", kind)
	}
	if err != nil {
		return model.Taxon{}, internalError(err)
	}
	return t, nil
}

func (u *TaxonUsecase) Create(ctx context.Context, kind model.TaxonKind, in TaxonInput) (model.Taxon, error) {
	t, err := buildTaxon(kind, in)
	if err != nil {
		return model.Taxon{}, err
	}

	created, err := u.taxons.Create(ctx, t)
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Taxon{}, conflictError(string(kind)+" with this slug already exists", err)
	}
	if err != nil {
		return model.Taxon{}, internalError(err)
	}
	return created, nil
}

func (u *TaxonUsecase) Update(ctx context.Context, kind model.TaxonKind, id int64, in TaxonInput) (model.Taxon, error) {
	if id <= 0 {
		return model.Taxon{}, validationError("invalid id")
	}
	t, err := buildTaxon(kind, in)
	if err != nil {
		return model.Taxon{}, err
	}
	t.ID = id

	err = u.taxons.Update(ctx, t)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return model.Taxon{}, notFoundError("%s not found", kind)
	case errors.Is(err, repo.ErrDuplicate):
		return model.Taxon{}, conflictError(string(kind)+" with this slug already exists", err)
	case err != nil:
		return model.Taxon{}, internalError(err)
	}
	return u.Get(ctx, kind, id)
}

func (u *TaxonUsecase) Delete(ctx context.Context, kind model.TaxonKind, id int64) error {
	if id <= 0 {
		return validationError("invalid id")
	}
	err := u.taxons.Delete(ctx, kind, id)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError("%s not found", kind)
	}
	if err != nil {
		return internalError(err)
	}
	return nil
}

func buildTaxon(kind model.TaxonKind, in TaxonInput) (model.Taxon, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return model.Taxon{}, err
	}
	name := in.Name

	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return model.Taxon{}, validationError("slug required")
	}

	return model.Taxon{
		Kind:        kind,
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
	}, nil
}

// 英小文字・数字以外はハイフンに寄せる
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func uniqueIDs(ids []int64) []int64 {
	return lo.Uniq(lo.Filter(ids, func(id int64, _ int) bool { return id > 0 }))
}
