// Package router registers the HTTP routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
)

// Handlers groups every handler the API serves.
type Handlers struct {
	Auth          *handler.AuthHandler
	Sessions      *handler.SessionHandler
	Reservations  *handler.ReservationHandler
	Credits       *handler.CreditHandler
	Packs         *handler.PackHandler
	Payments      *handler.PaymentHandler
	AdminSessions *handler.AdminSessionHandler
	AdminMembers  *handler.AdminMemberHandler
	Ready         echo.HandlerFunc
}

// Middleware holds the optional Redis-backed middleware.  Nil entries
// are skipped.
type Middleware struct {
	RateLimit  echo.MiddlewareFunc
	Cache      echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
}

func (m Middleware) cache() []echo.MiddlewareFunc      { return nonNil(m.Cache) }
func (m Middleware) rateLimit() []echo.MiddlewareFunc  { return nonNil(m.RateLimit) }
func (m Middleware) invalidate() []echo.MiddlewareFunc { return nonNil(m.Invalidate) }

func nonNil(fs ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := fs[:0]
	for _, f := range fs {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, h Handlers, mw Middleware) {
	e.GET("/healthz", handler.Health)
	if h.Ready != nil {
		e.GET("/readyz", h.Ready)
	}
	e.GET("/v1/sessions", h.Sessions.List, mw.cache()...)
	e.GET("/v1/sessions/:id", h.Sessions.Get, mw.cache()...)
	e.GET("/v1/packs", h.Packs.ListActive, mw.cache()...)
	e.POST("/v1/payments/webhook", h.Payments.Webhook)
}

// RegisterAuth registers authentication routes.  Register, login and
// refresh are public; /v1/me and logout need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleMember, model.RoleAdmin))
}

// RegisterMember registers member-scoped endpoints.  All routes require
// the MEMBER role; reserve is also rate limited per member.
func RegisterMember(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleMember),
	)
	g.POST("/sessions/:id/reservations", h.Reservations.Reserve, mw.rateLimit()...)
	g.GET("/reservations", h.Reservations.List)
	g.DELETE("/reservations/:id", h.Reservations.Cancel)

	g.GET("/credits/balance", h.Credits.Balance)
	g.GET("/credits/transactions", h.Credits.Transactions)
	g.POST("/credits/checkout", h.Credits.Checkout)
}

// RegisterAdmin registers administrator endpoints under /v1/admin.
// Writes purge the response cache so listings pick them up.
func RegisterAdmin(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.Use(mw.invalidate()...)

	g.GET("/sessions", h.AdminSessions.List)
	g.POST("/sessions", h.AdminSessions.Create)
	g.PATCH("/sessions/:id", h.AdminSessions.Update)
	g.DELETE("/sessions/:id", h.AdminSessions.Cancel)

	g.GET("/packs", h.Packs.ListAll)
	g.POST("/packs", h.Packs.Create)
	g.PATCH("/packs/:id", h.Packs.Update)
	g.DELETE("/packs/:id", h.Packs.Delete)

	g.GET("/members", h.AdminMembers.List)
	g.POST("/members", h.AdminMembers.Create)
	g.GET("/members/:id", h.AdminMembers.Get)
	g.PATCH("/members/:id", h.AdminMembers.Update)
	g.DELETE("/members/:id", h.AdminMembers.Delete)
	g.POST("/members/:id/credits", h.AdminMembers.GrantCredits)

	g.POST("/reconcile", h.AdminSessions.Reconcile)
}

// Register wires every route group.
func Register(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
	RegisterRoutes(e, h, mw)
	RegisterAuth(e, h.Auth, jwtSecret)
	RegisterMember(e, h, mw, jwtSecret)
	RegisterAdmin(e, h, mw, jwtSecret)
}
