package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// PackHandler lists packs publicly and manages them for administrators.
type PackHandler struct {
	Packs repository.PackStore
	Log   *zap.Logger
}

func NewPackHandler(packs repository.PackStore, log *zap.Logger) *PackHandler {
	return &PackHandler{Packs: packs, Log: nopIfNil(log).Named("packs")}
}

type packReq struct {
	Name        string `json:"name" validate:"required,max=100"`
	Credits     int    `json:"credits" validate:"gt=0"`
	PriceCents  int    `json:"price_cents" validate:"gt=0"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"is_active"`
}

type packPatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Credits     *int    `json:"credits" validate:"omitempty,gt=0"`
	PriceCents  *int    `json:"price_cents" validate:"omitempty,gt=0"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

// ListActive handles GET /v1/packs.
func (h *PackHandler) ListActive(c echo.Context) error {
	return h.list(c, true)
}

// ListAll handles GET /v1/admin/packs.
func (h *PackHandler) ListAll(c echo.Context) error {
	return h.list(c, false)
}

func (h *PackHandler) list(c echo.Context, activeOnly bool) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	packs, err := h.Packs.List(ctx, activeOnly)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"packs": packs})
}

// Create handles POST /v1/admin/packs.  New packs are active unless
// is_active is false.
func (h *PackHandler) Create(c echo.Context) error {
	var req packReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	active := req.IsActive == nil || *req.IsActive
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Packs.Create(ctx, model.CreditPack{
		Name:        req.Name,
		Credits:     req.Credits,
		PriceCents:  req.PriceCents,
		Description: req.Description,
		IsActive:    active,
	})
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Update handles PATCH /v1/admin/packs/:id.
func (h *PackHandler) Update(c echo.Context) error {
	var req packPatch
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Packs.Update(ctx, c.Param("id"), model.PackUpdate{
		Name:        req.Name,
		Credits:     req.Credits,
		PriceCents:  req.PriceCents,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /v1/admin/packs/:id.
func (h *PackHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Packs.Delete(ctx, c.Param("id")); err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
