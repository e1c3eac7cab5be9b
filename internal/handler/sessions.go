package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
)

// sessionView is a session as shown to members.
type sessionView struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Instructor      string    `json:"instructor"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Capacity        int       `json:"capacity"`
	AvailableSpots  int       `json:"available_spots"`
	Status          string    `json:"status"`
}

func newSessionView(s model.ClassSession) sessionView {
	return sessionView{
		ID:              s.ID,
		Title:           s.Title,
		Instructor:      s.Instructor,
		StartsAt:        s.StartsAt,
		EndsAt:          s.EndsAt(),
		DurationMinutes: s.DurationMinutes,
		Capacity:        s.Capacity,
		AvailableSpots:  s.Available(),
		Status:          s.Status,
	}
}

// SessionHandler serves the public timetable.
type SessionHandler struct {
	Coord *booking.Coordinator
	Log   *zap.Logger
}

func NewSessionHandler(coord *booking.Coordinator, log *zap.Logger) *SessionHandler {
	return &SessionHandler{Coord: coord, Log: nopIfNil(log).Named("sessions")}
}

// List handles GET /v1/sessions: upcoming sessions with availability.
func (h *SessionHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Coord.Upcoming(ctx)
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	out := make([]sessionView, 0, len(list))
	for _, s := range list {
		out = append(out, newSessionView(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	s, err := h.Coord.Session(ctx, c.Param("id"))
	if err != nil {
		return errorResponse(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newSessionView(s))
}
