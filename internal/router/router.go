// Package router wires the HTTP surface: public availability views, the
// member-facing circulation endpoints and the admin group.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/handler"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/middleware"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
)

// Handlers bundles every handler the router needs.
type Handlers struct {
	Auth         *handler.AuthHandler
	Books        *handler.BookHandler
	Loans        *handler.LoanHandler
	Reservations *handler.ReservationHandler
	Seats        *handler.SeatHandler
	Admin        *handler.AdminHandler
}

// Register mounts all routes on e. Public routes carry no middleware; the
// /v1 circulation group requires a valid access token and is rate limited;
// the /v1/admin group additionally requires the ADMIN role.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rl echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	// Unauthenticated auth endpoints.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout, middleware.JWTAuth(jwtSecret))

	// Public availability views.
	e.GET("/v1/books/:id/availability", h.Books.Availability)

	// Authenticated circulation endpoints for both roles.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	if rl != nil {
		v1.Use(rl)
	}
	v1.Use(middleware.RequireRole(model.RoleMember, model.RoleAdmin))

	v1.GET("/auth/me", h.Auth.Me)

	v1.GET("/members/me/loans", h.Loans.ListMine)
	v1.GET("/members/me/reservations", h.Reservations.ListMine)
	v1.GET("/members/me/seat-reservations", h.Seats.ListMine)

	v1.POST("/loans/borrow", h.Loans.Borrow)
	v1.POST("/loans/:id/return", h.Loans.Return)
	v1.POST("/loans/:id/renew", h.Loans.Renew)

	v1.POST("/reservations", h.Reservations.Reserve)
	v1.DELETE("/reservations/:id", h.Reservations.Cancel)

	v1.POST("/seats/reserve", h.Seats.Reserve)
	v1.DELETE("/seat-reservations/:id", h.Seats.Cancel)
	v1.POST("/seat-reservations/:id/check-in", h.Seats.CheckIn)
	v1.GET("/seats/zones", h.Seats.Occupancy)
	v1.GET("/seats/zones/:zone", h.Seats.ListZone)

	// Administrative endpoints.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	admin.POST("/loans/:id/force-return", h.Admin.ForceReturn)
	admin.PUT("/books/:id/stock", h.Admin.AdjustStock)
	admin.GET("/books/:id/reservations", h.Admin.BookQueue)
	admin.GET("/loans/overdue", h.Admin.ListOverdue)
	admin.POST("/reservations/:id/fulfill", h.Admin.Fulfill)
	admin.POST("/reservations/:id/notify", h.Admin.MarkNotified)
	admin.POST("/sweeps/reservations", h.Admin.SweepReservations)
	admin.POST("/sweeps/seat-reservations", h.Admin.SweepSeatReservations)
}
