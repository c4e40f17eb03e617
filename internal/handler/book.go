package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/repository"
)

// BookHandler exposes the public availability view over the catalog stub.
type BookHandler struct {
	Books *repository.BookRepo
}

func NewBookHandler(books *repository.BookRepo) *BookHandler {
	if books == nil {
		panic("nil repository passed to NewBookHandler")
	}
	return &BookHandler{Books: books}
}

// Availability handles GET /v1/books/:id/availability. The snapshot is
// read outside any transaction; a borrow decision is never based on it.
func (h *BookHandler) Availability(c echo.Context) error {
	bookID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	book, err := h.Books.GetByID(c.Request().Context(), bookID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"book_id":          book.ID,
		"title":            book.Title,
		"author":           book.Author,
		"total_copies":     book.TotalCopies,
		"available_copies": book.AvailableCopies,
		"loaned_copies":    book.LoanedCopies(),
		"reservable":       book.AvailableCopies == 0,
	})
}
