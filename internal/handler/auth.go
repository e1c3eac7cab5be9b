package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Members repository.MemberStore
	Tokens  repository.TokenStore
	Log     *zap.Logger
}

func NewAuthHandler(cfg config.Config, m repository.MemberStore, t repository.TokenStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Members: m, Tokens: t, Log: nopIfNil(log).Named("auth")}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=32"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type memberPart struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	Member  memberPart `json:"member"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// Register creates a member with a zero balance and returns tokens.
// Self-registration always yields the MEMBER role.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	m, err := h.Members.Create(ctx, model.Member{
		Email:          strings.TrimSpace(req.Email),
		PasswordHash:   hash,
		Role:           model.RoleMember,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		MembershipType: "standard",
	})
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	resp, err := h.issue(c, m)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies the password and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Members.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, booking.ErrMemberNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials", "code": CodeUnauthorized})
		}
		return errorResponse(c, h.Log, err)
	}
	if !utils.VerifyPassword(m.PasswordHash, req.Password) || m.Status == model.MemberInactive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials", "code": CodeUnauthorized})
	}
	resp, err := h.issue(c, m)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestContext(c)
	defer cancel()

	memberID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh", "code": CodeUnauthorized})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return errorResponse(c, h.Log, err)
	}
	m, err := h.Members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, booking.ErrMemberNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh", "code": CodeUnauthorized})
		}
		return errorResponse(c, h.Log, err)
	}
	resp, err := h.issue(c, m)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes every refresh token of the authenticated member.
func (h *AuthHandler) Logout(c echo.Context) error {
	memberID, ok := currentMember(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Tokens.RevokeAllForMember(ctx, memberID); err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated member's profile, balance included.
func (h *AuthHandler) Me(c echo.Context) error {
	memberID, ok := currentMember(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Members.GetByID(ctx, memberID)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *AuthHandler) issue(c echo.Context, m model.Member) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, m.ID, m.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(c.Request().Context(), m.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		Member:  memberPart{ID: m.ID, Email: m.Email, Role: m.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}
