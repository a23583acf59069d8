package handler

import (
	"marketplace/internal/config"
	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/response"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

// カテゴリ・ブランド・サイズ・カラー・素材・タグ
type TaxonHandler struct {
	uc *usecase.TaxonUsecase
}

func NewTaxonHandler(uc *usecase.TaxonUsecase) *TaxonHandler {
	return &TaxonHandler{uc: uc}
}

type taxonRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"max=255"`
	Description string `json:"description"`
}

// 参照は公開、変更はADMINだけ
func (h *TaxonHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.GET("/taxons/:kind", h.list)
	e.GET("/taxons/:kind/:id", h.get)

	g := e.Group("/admin/taxons")
	g.Use(middleware.AuthJWT(cfg.JWTSecret))
	g.Use(middleware.TokenVersionGuard(userRepo))
	g.Use(middleware.RequireRoles(model.RoleAdmin))

	g.POST("/:kind", h.create)
	g.PUT("/:kind/:id", h.update)
	g.DELETE("/:kind/:id", h.delete)
}

func kindParam(c echo.Context) (model.TaxonKind, bool) {
	return model.ParseTaxonKind(c.Param("kind"))
}

func (h *TaxonHandler) list(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return notFoundKind(c)
	}

	out, err := h.uc.List(c.Request().Context(), kind)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, string(kind)+" list fetched", out)
}

func (h *TaxonHandler) get(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return notFoundKind(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), kind, id)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, string(kind)+" fetched", out)
}

func (h *TaxonHandler) create(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return notFoundKind(c)
	}

	var req taxonRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Create(c.Request().Context(), kind, usecase.TaxonInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return response.Created(c, string(kind)+" created", out)
}

func (h *TaxonHandler) update(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return notFoundKind(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req taxonRequest
	if err := bindRequest(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Update(c.Request().Context(), kind, id, usecase.TaxonInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, string(kind)+" updated", out)
}

func (h *TaxonHandler) delete(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return notFoundKind(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.Delete(c.Request().Context(), kind, id); err != nil {
		return writeError(c, err)
	}
	return response.OK(c, string(kind)+" deleted", nil)
}

func notFoundKind(c echo.Context) error {
	return writeError(c, &usecase.AppError{Kind: usecase.ErrNotFound, Message: "unknown taxonomy"})
}
