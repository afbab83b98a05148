package category

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/FanProject516/perpus-app/model"
	categorysvc "github.com/FanProject516/perpus-app/service/category"
)

type Controller struct {
	Svc categorysvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func isStaff(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleLibrarian || role == model.RoleAdmin
}

// POST /v1/categories  (librarian/admin)
func (h *Controller) Create(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	var req CategoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	cat := &model.Category{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    true,
	}
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
	}

	if err := h.Svc.Create(c.Request().Context(), cat); err != nil {
		return h.mapErr(c, "category create", err)
	}
	return c.JSON(http.StatusCreated, cat)
}

// GET /v1/categories
func (h *Controller) List(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	rootOnly := c.QueryParam("root") == "true"

	rows, err := h.Svc.List(c.Request().Context(), activeOnly, rootOnly)
	if err != nil {
		h.Log.Error("category list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/categories/tree
func (h *Controller) Tree(c echo.Context) error {
	roots, err := h.Svc.Tree(c.Request().Context())
	if err != nil {
		h.Log.Error("category tree", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": roots})
}

// GET /v1/categories/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	cat, err := h.Svc.Detail(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, "category detail", err)
	}
	return c.JSON(http.StatusOK, cat)
}

// PUT /v1/categories/:id  (librarian/admin)
func (h *Controller) Update(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req CategoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	cat := &model.Category{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    true,
	}
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
	}

	if err := h.Svc.Update(c.Request().Context(), cat); err != nil {
		return h.mapErr(c, "category update", err)
	}
	return c.JSON(http.StatusOK, cat)
}

// DELETE /v1/categories/:id  (librarian/admin)
func (h *Controller) Delete(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return h.mapErr(c, "category delete", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

func (h *Controller) mapErr(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, categorysvc.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "category not found"})
	case errors.Is(err, categorysvc.ErrBadInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
	case errors.Is(err, categorysvc.ErrNameTaken):
		return c.JSON(http.StatusConflict, echo.Map{"message": "category name already exists"})
	case errors.Is(err, categorysvc.ErrBadParent):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "parent category does not exist"})
	case errors.Is(err, categorysvc.ErrCircularTree):
		return c.JSON(http.StatusConflict, echo.Map{"message": "parent change would create a cycle"})
	case errors.Is(err, categorysvc.ErrHasChildren):
		return c.JSON(http.StatusConflict, echo.Map{"message": "category still has children"})
	case errors.Is(err, categorysvc.ErrHasBooks):
		return c.JSON(http.StatusConflict, echo.Map{"message": "category still has books"})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
