package book

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/FanProject516/perpus-app/model"
	bookrepo "github.com/FanProject516/perpus-app/repository/book"
	booksvc "github.com/FanProject516/perpus-app/service/book"
)

type Controller struct {
	Svc booksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func isStaff(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleLibrarian || role == model.RoleAdmin
}

// POST /v1/books  (librarian/admin)
func (h *Controller) Create(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req CreateBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	b, err := h.Svc.Create(c.Request().Context(), booksvc.CreateInput{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Publisher:   req.Publisher,
		Year:        req.Year,
		CategoryID:  req.CategoryID,
		Summary:     req.Summary,
		TotalCopies: req.TotalCopies,
		Condition:   model.Condition(req.Condition),
		Location:    req.Location,
	})
	if err != nil {
		switch {
		case errors.Is(err, booksvc.ErrBadInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		case errors.Is(err, booksvc.ErrISBNTaken):
			return c.JSON(http.StatusConflict, echo.Map{"message": "isbn already registered"})
		case errors.Is(err, booksvc.ErrBadCategory):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "category does not exist"})
		default:
			h.Log.Error("book create", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, b)
}

// GET /v1/books
func (h *Controller) List(c echo.Context) error {
	f := bookrepo.ListFilter{
		Search:        c.QueryParam("search"),
		AvailableOnly: c.QueryParam("available") == "true",
		Limit:         queryInt(c, "limit", 20),
		Offset:        queryInt(c, "offset", 0),
	}
	if cid, err := strconv.ParseInt(c.QueryParam("category_id"), 10, 64); err == nil {
		f.CategoryID = cid
	}

	rows, err := h.Svc.List(c.Request().Context(), f)
	if err != nil {
		h.Log.Error("book list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/books/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	b, copies, err := h.Svc.Detail(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, booksvc.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		}
		h.Log.Error("book detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"book": b, "copies": copies})
}

// PUT /v1/books/:id  (librarian/admin)
func (h *Controller) Update(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req UpdateBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	in := booksvc.UpdateInput{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Publisher:   req.Publisher,
		Year:        req.Year,
		CategoryID:  req.CategoryID,
		Summary:     req.Summary,
		TotalCopies: req.TotalCopies,
		Location:    req.Location,
		IsAvailable: req.IsAvailable,
	}
	if req.Condition != nil {
		cond := model.Condition(*req.Condition)
		in.Condition = &cond
	}

	b, err := h.Svc.Update(c.Request().Context(), id, in)
	if err != nil {
		switch {
		case errors.Is(err, booksvc.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case errors.Is(err, booksvc.ErrBadInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		case errors.Is(err, booksvc.ErrISBNTaken):
			return c.JSON(http.StatusConflict, echo.Map{"message": "isbn already registered"})
		case errors.Is(err, booksvc.ErrBadCategory):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "category does not exist"})
		default:
			h.Log.Error("book update", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, b)
}

// DELETE /v1/books/:id  (librarian/admin)
func (h *Controller) Delete(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, booksvc.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case errors.Is(err, booksvc.ErrHasActiveLoans):
			return c.JSON(http.StatusConflict, echo.Map{"message": "book has active loans"})
		default:
			h.Log.Error("book delete", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

// POST /v1/books/:id/copies  (librarian/admin)
func (h *Controller) AddCopies(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req AddCopiesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": echo.Map{"count": "gt 0"}})
	}

	copies, err := h.Svc.AddCopies(c.Request().Context(), id, req.Count, model.Condition(req.Condition), req.Location)
	if err != nil {
		switch {
		case errors.Is(err, booksvc.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
		case errors.Is(err, booksvc.ErrBadInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		default:
			h.Log.Error("add copies", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"added": len(copies), "copies": copies})
}

// GET /v1/books/statistics  (librarian/admin)
func (h *Controller) Statistics(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	stats, err := h.Svc.Statistics(c.Request().Context())
	if err != nil {
		h.Log.Error("book statistics", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, stats)
}

func queryInt(c echo.Context, key string, def int) int {
	v := c.QueryParam(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
