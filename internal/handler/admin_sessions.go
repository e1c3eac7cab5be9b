package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// ReasonSessionCancelled tags reservation.cancelled events caused by an
// administrator cancelling the whole session.
const ReasonSessionCancelled = "session_cancelled"

// AdminSessionHandler manages the timetable.
type AdminSessionHandler struct {
	Sessions repository.SessionStore
	Seats    booking.SeatLedger
	Coord    *booking.Coordinator
	Events   *service.BookingEvents
	Log      *zap.Logger
}

func NewAdminSessionHandler(sessions repository.SessionStore, seats booking.SeatLedger, coord *booking.Coordinator, events *service.BookingEvents, log *zap.Logger) *AdminSessionHandler {
	if sessions == nil || seats == nil || coord == nil {
		panic("nil dependency passed to NewAdminSessionHandler")
	}
	if events == nil {
		events = service.NewBookingEvents(nil, log)
	}
	return &AdminSessionHandler{Sessions: sessions, Seats: seats, Coord: coord, Events: events, Log: nopIfNil(log).Named("admin.sessions")}
}

type sessionReq struct {
	Title           string    `json:"title" validate:"required,max=120"`
	Instructor      string    `json:"instructor" validate:"required,max=120"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"gt=0,lte=480"`
	Capacity        int       `json:"capacity" validate:"gt=0,lte=500"`
}

type sessionPatch struct {
	Title           *string    `json:"title" validate:"omitempty,min=1,max=120"`
	Instructor      *string    `json:"instructor" validate:"omitempty,min=1,max=120"`
	StartsAt        *time.Time `json:"starts_at"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,gt=0,lte=480"`
	Capacity        *int       `json:"capacity"`
}

// List handles GET /v1/admin/sessions: every session, cancelled ones
// included, with availability.
func (h *AdminSessionHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Sessions.List(ctx)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	out := make([]sessionView, 0, len(list))
	for _, s := range list {
		if s, err = h.Coord.Session(ctx, s.ID); err != nil {
			return errorResponse(c, h.Log, err)
		}
		out = append(out, newSessionView(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// Create handles POST /v1/admin/sessions and opens the seat ledger entry.
func (h *AdminSessionHandler) Create(c echo.Context) error {
	var req sessionReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	s, err := h.Sessions.Create(ctx, model.ClassSession{
		Title:           req.Title,
		Instructor:      req.Instructor,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Capacity:        req.Capacity,
	})
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	if _, err := h.Seats.Sync(ctx, s, 0); err != nil {
		return errorResponse(c, h.Log, err)
	}
	h.Log.Info("session created", zap.String("session_id", s.ID), zap.Int("capacity", s.Capacity))
	return c.JSON(http.StatusCreated, newSessionView(s))
}

// Update handles PATCH /v1/admin/sessions/:id.  Capacity is fixed once a
// session exists.
func (h *AdminSessionHandler) Update(c echo.Context) error {
	var req sessionPatch
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if req.Capacity != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "capacity cannot be changed", "code": CodeBadRequest})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	cur, err := h.Sessions.Get(ctx, id)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	if cur.Cancelled() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "session is cancelled", "code": CodeConflict})
	}
	if _, err := h.Sessions.Update(ctx, id, model.SessionUpdate{
		Title:           req.Title,
		Instructor:      req.Instructor,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
	}); err != nil {
		return errorResponse(c, h.Log, err)
	}
	s, err := h.Coord.Session(ctx, id)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newSessionView(s))
}

// Cancel handles DELETE /v1/admin/sessions/:id.  Every confirmed
// reservation is cancelled with a refund.
func (h *AdminSessionHandler) Cancel(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	id := c.Param("id")
	s, err := h.Sessions.Get(ctx, id)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	if s.Cancelled() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "session already cancelled", "code": CodeAlreadyCancelled})
	}
	refunded, err := h.Coord.CancelSession(ctx, id, func(ctx context.Context) error {
		return h.Sessions.Cancel(ctx, id)
	})
	for _, r := range refunded {
		h.Events.Cancelled(ctx, r, s, ReasonSessionCancelled)
	}
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session_id": id, "refunded": len(refunded)})
}

// Reconcile handles POST /v1/admin/reconcile.  The report is returned
// even when some corrections could not be applied.
func (h *AdminSessionHandler) Reconcile(c echo.Context) error {
	report, err := h.Coord.Reconcile(c.Request().Context())
	if err != nil {
		h.Log.Error("reconciliation incomplete", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":  err.Error(),
			"code":   CodeInconsistency,
			"report": report,
		})
	}
	return c.JSON(http.StatusOK, report)
}
