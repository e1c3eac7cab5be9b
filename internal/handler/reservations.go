package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/service"
)

// IdempotencyKeyHeader lets clients retry a reserve safely.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// ReservationHandler exposes reserve, list and cancel to members.
type ReservationHandler struct {
	Coord   *booking.Coordinator
	Credits booking.CreditAccount
	Events  *service.BookingEvents
	Log     *zap.Logger
}

func NewReservationHandler(coord *booking.Coordinator, credits booking.CreditAccount, events *service.BookingEvents, log *zap.Logger) *ReservationHandler {
	if coord == nil || credits == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	if events == nil {
		events = service.NewBookingEvents(nil, log)
	}
	return &ReservationHandler{Coord: coord, Credits: credits, Events: events, Log: nopIfNil(log).Named("reservations")}
}

type reservationResp struct {
	Reservation model.Reservation `json:"reservation"`
	Balance     int               `json:"balance"`
}

// Reserve handles POST /v1/sessions/:id/reservations.  With an
// Idempotency-Key header a retry returns the first result with 200.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	memberID, ok := currentMember(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID := c.Param("id")
	key := strings.TrimSpace(c.Request().Header.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLen {
		return badRequest(c, "idempotency key too long")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, replay, err := h.Coord.ReserveWithKey(ctx, memberID, sessionID, key)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	bal, err := h.Credits.Balance(ctx, memberID)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	if replay {
		return c.JSON(http.StatusOK, reservationResp{Reservation: res, Balance: bal})
	}
	if s, err := h.Coord.Session(ctx, sessionID); err == nil {
		h.Events.Confirmed(ctx, res, s)
	}
	return c.JSON(http.StatusCreated, reservationResp{Reservation: res, Balance: bal})
}

// List handles GET /v1/reservations.
func (h *ReservationHandler) List(c echo.Context) error {
	memberID, ok := currentMember(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Coord.ListForMember(ctx, memberID)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	if status := c.QueryParam("status"); status != "" {
		kept := list[:0]
		for _, r := range list {
			if r.Status == status {
				kept = append(kept, r)
			}
		}
		list = kept
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}

// Cancel handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	memberID, ok := currentMember(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Coord.Cancel(ctx, memberID, c.Param("id"))
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	bal, err := h.Credits.Balance(ctx, memberID)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	if s, err := h.Coord.Session(ctx, res.SessionID); err == nil {
		h.Events.Cancelled(ctx, res, s, "")
	}
	return c.JSON(http.StatusOK, reservationResp{Reservation: res, Balance: bal})
}
