// Package handler holds the echo HTTP handlers.  Handlers translate
// requests into coordinator and store calls and map typed failures onto
// status codes; they hold no booking logic of their own.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// requestTimeout bounds store calls made on behalf of one request.
const requestTimeout = 5 * time.Second

// Error codes returned in the "code" field.
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyBooked       = "ALREADY_BOOKED"
	CodeSessionFull         = "SESSION_FULL"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeAlreadyCancelled    = "ALREADY_CANCELLED"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	CodeConflict            = "CONFLICT"
	CodePackInactive        = "PACK_INACTIVE"
	CodeInconsistency       = "INTERNAL_INCONSISTENCY"
	CodeInternal            = "INTERNAL"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorTable = []errorMapping{
	{booking.ErrSessionNotFound, http.StatusNotFound, CodeNotFound},
	{booking.ErrMemberNotFound, http.StatusNotFound, CodeNotFound},
	{booking.ErrReservationNotFound, http.StatusNotFound, CodeNotFound},
	{repository.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{booking.ErrAlreadyBooked, http.StatusConflict, CodeAlreadyBooked},
	{booking.ErrSessionFull, http.StatusConflict, CodeSessionFull},
	{booking.ErrInsufficientCredits, http.StatusPaymentRequired, CodeInsufficientCredits},
	{booking.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{booking.ErrAlreadyCancelled, http.StatusConflict, CodeAlreadyCancelled},
	{booking.ErrIdempotencyConflict, http.StatusUnprocessableEntity, CodeIdempotencyConflict},
	{booking.ErrMemberHasReservations, http.StatusConflict, CodeConflict},
	{booking.ErrInvalidAmount, http.StatusBadRequest, CodeBadRequest},
	{repository.ErrEmailExists, http.StatusConflict, CodeConflict},
	{repository.ErrConflict, http.StatusConflict, CodeConflict},
	{service.ErrPackInactive, http.StatusConflict, CodePackInactive},
}

// errorResponse writes {"error","code"} for err.  Unknown errors become
// 500 and are logged; the message sent to the client is generic.
func errorResponse(c echo.Context, log *zap.Logger, err error) error {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return c.JSON(m.status, echo.Map{"error": m.target.Error(), "code": m.code})
		}
	}
	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("route", c.Path()),
		zap.Error(err),
	}
	if booking.IsInconsistency(err) {
		log.Error("internal inconsistency", fields...)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal inconsistency", "code": CodeInconsistency})
	}
	log.Error("request failed", fields...)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": CodeInternal})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": CodeBadRequest})
}

// bindValid binds the body into dst and runs the registered validator.
// A failure comes back as a 400 *echo.HTTPError the caller must return
// unchanged; nothing has been written to the response yet.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return invalidInput("invalid body")
	}
	if err := c.Validate(dst); err != nil {
		return invalidInput(err.Error())
	}
	return nil
}

func invalidInput(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": msg, "code": CodeBadRequest})
}

// currentMember returns the authenticated member id.
func currentMember(c echo.Context) (string, bool) {
	id := middleware.UserID(c)
	return id, id != ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": CodeUnauthorized})
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
