package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/service"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Signature"

const maxWebhookBody = 64 << 10

// PaymentHandler receives payment processor callbacks.
type PaymentHandler struct {
	Purchase *service.PurchaseService
	Secret   string
	Log      *zap.Logger
}

func NewPaymentHandler(purchase *service.PurchaseService, secret string, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Purchase: purchase, Secret: secret, Log: nopIfNil(log).Named("payments")}
}

// Webhook handles POST /v1/payments/webhook.  The signature is checked
// over the raw body before it is parsed.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(c, "unreadable body")
	}
	if !utils.VerifyPayload(h.Secret, body, c.Request().Header.Get(SignatureHeader)) {
		h.Log.Warn("webhook signature rejected", zap.String("ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature", "code": CodeUnauthorized})
	}
	var ev queue.PaymentConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.PaymentID == "" {
		return badRequest(c, "payment_id required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, bal, err := h.Purchase.Confirm(ctx, ev.PaymentID)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payment": p, "balance": bal})
}
