package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// AdminMemberHandler manages member accounts and credit grants.
type AdminMemberHandler struct {
	Members    repository.MemberStore
	Coord      *booking.Coordinator
	Tokens     repository.TokenStore
	BcryptCost int
	Log        *zap.Logger
}

func NewAdminMemberHandler(members repository.MemberStore, coord *booking.Coordinator, tokens repository.TokenStore, bcryptCost int, log *zap.Logger) *AdminMemberHandler {
	return &AdminMemberHandler{Members: members, Coord: coord, Tokens: tokens, BcryptCost: bcryptCost, Log: nopIfNil(log).Named("admin.members")}
}

type memberReq struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	Role           string `json:"role" validate:"omitempty,oneof=MEMBER ADMIN"`
	FirstName      string `json:"first_name" validate:"max=100"`
	LastName       string `json:"last_name" validate:"max=100"`
	Phone          string `json:"phone" validate:"max=32"`
	MembershipType string `json:"membership_type" validate:"max=32"`
	Credits        int    `json:"credits" validate:"gte=0"`
}

type memberPatch struct {
	Email          *string `json:"email" validate:"omitempty,email"`
	FirstName      *string `json:"first_name" validate:"omitempty,max=100"`
	LastName       *string `json:"last_name" validate:"omitempty,max=100"`
	Phone          *string `json:"phone" validate:"omitempty,max=32"`
	MembershipType *string `json:"membership_type" validate:"omitempty,max=32"`
	Status         *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

type grantReq struct {
	Credits int `json:"credits" validate:"gt=0,lte=1000"`
}

// List handles GET /v1/admin/members.
func (h *AdminMemberHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Members.List(ctx)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"members": list})
}

// Get handles GET /v1/admin/members/:id.
func (h *AdminMemberHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Members.GetByID(ctx, c.Param("id"))
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Create handles POST /v1/admin/members.  Starting credits are
// journaled as a grant.
func (h *AdminMemberHandler) Create(c echo.Context) error {
	var req memberReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	if req.Role == "" {
		req.Role = model.RoleMember
	}
	if req.MembershipType == "" {
		req.MembershipType = "standard"
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Members.Create(ctx, model.Member{
		Email:          req.Email,
		PasswordHash:   hash,
		Role:           req.Role,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		MembershipType: req.MembershipType,
		Credits:        req.Credits,
	})
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// Update handles PATCH /v1/admin/members/:id.  The balance is not
// editable here; use the credits endpoint.
func (h *AdminMemberHandler) Update(c echo.Context) error {
	var req memberPatch
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Members.UpdateProfile(ctx, c.Param("id"), model.MemberProfile{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		MembershipType: req.MembershipType,
		Status:         req.Status,
	})
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// GrantCredits handles POST /v1/admin/members/:id/credits.
func (h *AdminMemberHandler) GrantCredits(c echo.Context) error {
	var req grantReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	if err := h.Members.Credit(ctx, model.CreditEntry{MemberID: id, Amount: req.Credits, Kind: model.CreditGrant}); err != nil {
		return errorResponse(c, h.Log, err)
	}
	bal, err := h.Members.Balance(ctx, id)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	h.Log.Info("credits granted", zap.String("member_id", id), zap.Int("credits", req.Credits))
	return c.JSON(http.StatusOK, echo.Map{"member_id": id, "balance": bal})
}

// Delete handles DELETE /v1/admin/members/:id.  A member holding a
// confirmed reservation cannot be deleted.
func (h *AdminMemberHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	err := h.Coord.DeleteMember(ctx, id, func(ctx context.Context) error {
		if err := h.Tokens.RevokeAllForMember(ctx, id); err != nil {
			return err
		}
		return h.Members.Delete(ctx, id)
	})
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
