package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// CreditHandler serves a member's wallet: balance, journal and checkout.
type CreditHandler struct {
	Members  repository.MemberStore
	Purchase *service.PurchaseService
	Log      *zap.Logger
}

func NewCreditHandler(members repository.MemberStore, purchase *service.PurchaseService, log *zap.Logger) *CreditHandler {
	return &CreditHandler{Members: members, Purchase: purchase, Log: nopIfNil(log).Named("credits")}
}

// Balance handles GET /v1/credits/balance.
func (h *CreditHandler) Balance(c echo.Context) error {
	memberID, ok := currentMember(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	bal, err := h.Members.Balance(ctx, memberID)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"member_id": memberID, "balance": bal})
}

// Transactions handles GET /v1/credits/transactions, oldest first.
func (h *CreditHandler) Transactions(c echo.Context) error {
	memberID, ok := currentMember(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	txs, err := h.Members.Transactions(ctx, memberID)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

type checkoutReq struct {
	PackID string `json:"pack_id" validate:"required"`
}

// Checkout handles POST /v1/credits/checkout.  The payment stays pending
// until the processor confirms it.
func (h *CreditHandler) Checkout(c echo.Context) error {
	memberID, ok := currentMember(c)
	if !ok {
		return unauthorized(c)
	}
	var req checkoutReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Purchase.Checkout(ctx, memberID, req.PackID)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}
