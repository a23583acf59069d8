package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
)

// 商品キャッシュの破棄（書き込み後に呼ぶ）
type ProductCache interface {
	Invalidate(ctx context.Context, productID int64) error
}

type ProductUsecase struct {
	productRepo   repo.ProductRepository
	reader        repo.ProductReader
	cache         ProductCache
	taxonRepo     repo.TaxonRepository
	inventoryRepo repo.InventoryRepository
	auditRepo     repo.AuditLogRepository
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	reader repo.ProductReader,
	cache ProductCache,
	taxonRepo repo.TaxonRepository,
	inventoryRepo repo.InventoryRepository,
	auditRepo repo.AuditLogRepository,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		reader:        reader,
		cache:         cache,
		taxonRepo:     taxonRepo,
		inventoryRepo: inventoryRepo,
		auditRepo:     auditRepo,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page       int    `validate:"min=1"`
	Limit      int    `validate:"min=1,max=100"`
	Q          string `validate:"max=100"`
	CategoryID *int64 `validate:"omitempty,gt=0"`
	BrandID    *int64 `validate:"omitempty,gt=0"`
	MinPrice   *int64 `validate:"omitempty,gte=0"`
	MaxPrice   *int64 `validate:"omitempty,gte=0"`
	Sort       string `validate:"omitempty,oneof=new price_asc price_desc name_asc"`
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type ProductInput struct {
	Name        string `validate:"required,max=255"`
	Description string
	Price       int64 `validate:"gte=0"`
	Stock       int64 `validate:"gte=0"` //作成時のみ。以後は在庫更新で
	IsActive    bool
	CategoryID  *int64  `validate:"omitempty,gt=0"`
	BrandID     *int64  `validate:"omitempty,gt=0"`
	MaterialID  *int64  `validate:"omitempty,gt=0"`
	SizeIDs     []int64 `validate:"dive,gt=0"`
	ColorIDs    []int64 `validate:"dive,gt=0"`
	TagIDs      []int64 `validate:"dive,gt=0"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	q, err := toProductListQuery(in)
	if err != nil {
		return ProductListOutput{}, err
	}
	return u.list(ctx, q)
}

// 出品者は自分の商品だけ（非公開含む）。管理者は全部
func (u *ProductUsecase) ListManagedProducts(ctx context.Context, actor Actor, in ListProductsInput) (ProductListOutput, error) {
	if err := requireStaff(actor); err != nil {
		return ProductListOutput{}, err
	}
	q, err := toProductListQuery(in)
	if err != nil {
		return ProductListOutput{}, err
	}
	q.IncludeInactive = true
	if actor.IsSeller() {
		q.SellerID = &actor.UserID
	}
	return u.list(ctx, q)
}

func (u *ProductUsecase) list(ctx context.Context, q repo.ProductListQuery) (ProductListOutput, error) {
	items, total, err := u.productRepo.List(ctx, q)
	if err != nil {
		return ProductListOutput{}, internalError(err)
	}
	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

// 公開中のみ（キャッシュ経由）
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, validationError("invalid product id")
	}

	p, err := u.reader.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFoundError("product not found")
	}
	if err != nil {
		return model.Product{}, internalError(err)
	}

	if !p.IsActive {
		return model.Product{}, notFoundError("product not found")
	}
	return p, nil
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, actor Actor, in ProductInput) (model.Product, error) {
	if err := requireStaff(actor); err != nil {
		return model.Product{}, err
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}
	if err := u.checkTaxons(ctx, in); err != nil {
		return model.Product{}, err
	}

	created, err := u.productRepo.Create(ctx, model.Product{
		SellerID:    actor.UserID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		IsActive:    in.IsActive,
		CategoryID:  in.CategoryID,
		BrandID:     in.BrandID,
		MaterialID:  in.MaterialID,
	}, taxonsOf(in))
	if err != nil {
		return model.Product{}, internalError(err)
	}

	p, err := u.productRepo.FindByID(ctx, created.ID)
	if err != nil {
		return model.Product{}, internalError(err)
	}
	return p, nil
}

func (u *ProductUsecase) UpdateProduct(ctx context.Context, actor Actor, productID int64, in ProductInput) (model.Product, error) {
	if err := requireStaff(actor); err != nil {
		return model.Product{}, err
	}
	if productID <= 0 {
		return model.Product{}, validationError("invalid product id")
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}

	current, err := u.findManaged(ctx, actor, productID)
	if err != nil {
		return model.Product{}, err
	}
	if err := u.checkTaxons(ctx, in); err != nil {
		return model.Product{}, err
	}

	err = u.productRepo.Update(ctx, model.Product{
		ID:          current.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		IsActive:    in.IsActive,
		CategoryID:  in.CategoryID,
		BrandID:     in.BrandID,
		MaterialID:  in.MaterialID,
	}, taxonsOf(in))
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFoundError("product not found")
	}
	if err != nil {
		return model.Product{}, internalError(err)
	}
	u.invalidate(ctx, productID)

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return model.Product{}, internalError(err)
	}
	return p, nil
}

func (u *ProductUsecase) DeleteProduct(ctx context.Context, actor Actor, productID int64) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if productID <= 0 {
		return validationError("invalid product id")
	}
	if _, err := u.findManaged(ctx, actor, productID); err != nil {
		return err
	}

	err := u.productRepo.SoftDelete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError("product not found")
	}
	if err != nil {
		return internalError(err)
	}
	u.invalidate(ctx, productID)
	return nil
}

// 在庫の現在値を更新（調整履歴＋監査ログ）
func (u *ProductUsecase) UpdateInventory(ctx context.Context, actor Actor, productID int64, newStock int64, reason string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if productID <= 0 {
		return validationError("invalid product id")
	}
	if newStock < 0 {
		return validationError("stock must be >= 0")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationError("reason required")
	}
	if _, err := u.findManaged(ctx, actor, productID); err != nil {
		return err
	}

	before, err := u.inventoryRepo.SetStockWithAdjustment(ctx, actor.UserID, productID, newStock, reason)
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError("product not found")
	}
	if err != nil {
		return internalError(err)
	}
	u.invalidate(ctx, productID)

	//監査ログを作成（在庫更新）
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actor.UserID,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   fmt.Sprintf(`{"stock":%d}`, before),
		AfterJSON:    fmt.Sprintf(`{"stock":%d}`, newStock),
	}); err != nil {
		return internalError(err)
	}
	return nil
}

// 出品者は自分の商品だけ触れる（他人のは存在しない扱い）
func (u *ProductUsecase) findManaged(ctx context.Context, actor Actor, productID int64) (model.Product, error) {
	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFoundError("product not found")
	}
	if err != nil {
		return model.Product{}, internalError(err)
	}
	if actor.IsSeller() && p.SellerID != actor.UserID {
		return model.Product{}, notFoundError("product not found")
	}
	return p, nil
}

// 参照先の分類が存在するか
func (u *ProductUsecase) checkTaxons(ctx context.Context, in ProductInput) error {
	single := []struct {
		kind model.TaxonKind
		id   *int64
	}{
		{model.TaxonCategory, in.CategoryID},
		{model.TaxonBrand, in.BrandID},
		{model.TaxonMaterial, in.MaterialID},
	}
	for _, s := range single {
		if s.id == nil {
			continue
		}
		if _, err := u.taxonRepo.FindByID(ctx, s.kind, *s.id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return validationError("unknown %s: %d", s.kind, *s.id)
			}
			return internalError(err)
		}
	}

	multi := []struct {
		kind model.TaxonKind
		ids  []int64
	}{
		{model.TaxonSize, in.SizeIDs},
		{model.TaxonColor, in.ColorIDs},
		{model.TaxonTag, in.TagIDs},
	}
	for _, m := range multi {
		ids := uniqueIDs(m.ids)
		if len(ids) == 0 {
			continue
		}
		n, err := u.taxonRepo.CountByIDs(ctx, m.kind, ids)
		if err != nil {
			return internalError(err)
		}
		if n != int64(len(ids)) {
			return validationError("unknown %s in list", m.kind)
		}
	}
	return nil
}

// キャッシュ破棄の失敗はTTLで消えるのでログだけ
func (u *ProductUsecase) invalidate(ctx context.Context, productID int64) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Invalidate(ctx, productID); err != nil {
		slog.WarnContext(ctx, "product cache invalidate failed", "product_id", productID, "err", err)
	}
}

func validateProductInput(in ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	return validateInput(in)
}

func toProductListQuery(in ListProductsInput) (repo.ProductListQuery, error) {
	if err := validateInput(in); err != nil {
		return repo.ProductListQuery{}, err
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return repo.ProductListQuery{}, validationError("min_price must be <= max_price")
	}

	return repo.ProductListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          strings.TrimSpace(in.Q),
		CategoryID: in.CategoryID,
		BrandID:    in.BrandID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Sort:       in.Sort,
	}, nil
}

func taxonsOf(in ProductInput) repo.ProductTaxons {
	return repo.ProductTaxons{
		SizeIDs:  uniqueIDs(in.SizeIDs),
		ColorIDs: uniqueIDs(in.ColorIDs),
		TagIDs:   uniqueIDs(in.TagIDs),
	}
}
