package handler

import (
	"marketplace/internal/response"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /products の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	in, msg := parseListProducts(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "products fetched", out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, "product fetched", out)
}

// 一覧のクエリ。不正なら2つ目にメッセージ
func parseListProducts(c echo.Context) (usecase.ListProductsInput, string) {
	// page（default 1）
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return usecase.ListProductsInput{}, "invalid page"
	}

	// limit（default 20）
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return usecase.ListProductsInput{}, "invalid limit"
	}

	in := usecase.ListProductsInput{
		Page:  page,
		Limit: limit,
		Q:     c.QueryParam("q"),
		Sort:  c.QueryParam("sort"),
	}

	for name, dst := range map[string]**int64{
		"category_id": &in.CategoryID,
		"brand_id":    &in.BrandID,
		"min_price":   &in.MinPrice,
		"max_price":   &in.MaxPrice,
	} {
		v, err := queryInt64Ptr(c, name)
		if err != nil {
			return usecase.ListProductsInput{}, "invalid " + name
		}
		*dst = v
	}

	return in, ""
}
