// Package handler defines the HTTP handlers for the circulation API. Every
// handler assumes JWT authentication and role checks already ran in
// middleware; each state-changing handler performs its checks and writes in
// one database transaction so concurrent requests serialize on row locks
// instead of racing.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/database"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/repository"
)

// Validator adapts go-playground/validator to Echo's Validator interface so
// handlers can call c.Validate on bound request bodies.
type Validator struct {
	validate *validator.Validate
}

// NewValidator returns a Validator ready to install on an Echo instance.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// getMemberID extracts the member id stored in the context by the JWT
// middleware and converts it to uint64.
func getMemberID(c echo.Context) (uint64, error) {
	v := c.Get("member_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid member_id in context")
}

// isAdmin reports whether the authenticated request carries the ADMIN role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "ADMIN"
}

// pathID parses a positive uint64 path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// respondError maps repository sentinels to HTTP statuses. Missing records
// are 404; lost races and terminal-state conflicts are 409; policy caps and
// window violations are 422; anything unrecognized is a 500 with a generic
// message so internals never leak to clients.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrBookNotFound),
		errors.Is(err, repository.ErrSeatNotFound),
		errors.Is(err, repository.ErrLoanNotFound),
		errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrSeatReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})

	case errors.Is(err, repository.ErrNoCopies),
		errors.Is(err, repository.ErrSeatUnavailable),
		errors.Is(err, repository.ErrSeatTimeConflict),
		errors.Is(err, repository.ErrDuplicateReservation),
		errors.Is(err, repository.ErrNotActive),
		errors.Is(err, repository.ErrAlreadyReturned),
		errors.Is(err, repository.ErrAlreadyCheckedIn),
		errors.Is(err, repository.ErrBookAvailable),
		errors.Is(err, database.ErrContention):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})

	case errors.Is(err, repository.ErrLoanLimit),
		errors.Is(err, repository.ErrReservationLimit),
		errors.Is(err, repository.ErrSeatReservationHeld),
		errors.Is(err, repository.ErrRenewalLimit),
		errors.Is(err, repository.ErrTooEarly),
		errors.Is(err, repository.ErrInvalidAdjustment):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
