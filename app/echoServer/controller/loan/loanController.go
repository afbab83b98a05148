package loan

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/FanProject516/perpus-app/model"
	loanrepo "github.com/FanProject516/perpus-app/repository/loan"
	loansvc "github.com/FanProject516/perpus-app/service/loan"
)

type Controller struct {
	Svc loansvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func isStaff(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleLibrarian || role == model.RoleAdmin
}

// POST /v1/loans
func (h *Controller) Borrow(c echo.Context) error {
	var req BorrowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	uid, _ := c.Get("user_id").(int64)
	role, _ := c.Get("role").(string)

	out, err := h.Svc.Borrow(c.Request().Context(), uid, role, req.BookID, req.DueDate)
	if err != nil {
		return h.mapErr(c, "loan borrow", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// POST /v1/loans/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.requireOwnerOrStaff(c, id); err != nil {
		return err
	}

	out, err := h.Svc.Return(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, "loan return", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /v1/loans/:id/extend
func (h *Controller) Extend(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req ExtendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": echo.Map{"days": "gt 0"}})
	}
	if err := h.requireOwnerOrStaff(c, id); err != nil {
		return err
	}

	out, err := h.Svc.Extend(c.Request().Context(), id, req.Days)
	if err != nil {
		return h.mapErr(c, "loan extend", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/loans/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	out, err := h.Svc.ByID(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, "loan detail", err)
	}
	uid, _ := c.Get("user_id").(int64)
	if out.UserID != uid && !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/loans/my
func (h *Controller) My(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)

	rows, err := h.Svc.List(c.Request().Context(), loanrepo.ListFilter{
		UserID: uid,
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	})
	if err != nil {
		h.Log.Error("loan history", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/loans  (librarian/admin)
func (h *Controller) List(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	f := loanrepo.ListFilter{
		Status:      model.LoanStatus(c.QueryParam("status")),
		ActiveOnly:  c.QueryParam("active") == "true",
		OverdueOnly: c.QueryParam("overdue") == "true",
		Limit:       queryInt(c, "limit", 50),
		Offset:      queryInt(c, "offset", 0),
	}
	if uid, err := strconv.ParseInt(c.QueryParam("user_id"), 10, 64); err == nil {
		f.UserID = uid
	}

	rows, err := h.Svc.List(c.Request().Context(), f)
	if err != nil {
		h.Log.Error("loan list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// POST /v1/loans/:id/overdue  (librarian/admin)
func (h *Controller) MarkOverdue(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	applied, err := h.Svc.MarkOverdue(c.Request().Context(), id)
	if err != nil {
		return h.mapErr(c, "loan mark overdue", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"applied": applied})
}

// POST /v1/loans/sweep-overdue  (librarian/admin)
func (h *Controller) SweepOverdue(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	n, err := h.Svc.SweepOverdue(c.Request().Context())
	if err != nil {
		h.Log.Error("overdue sweep", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"transitioned": n})
}

// GET /v1/loans/statistics  (librarian/admin)
func (h *Controller) Statistics(c echo.Context) error {
	if !isStaff(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	stats, err := h.Svc.Statistics(c.Request().Context())
	if err != nil {
		h.Log.Error("loan statistics", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, stats)
}

// requireOwnerOrStaff rejects members acting on loans that are not theirs.
func (h *Controller) requireOwnerOrStaff(c echo.Context, loanID int64) error {
	if isStaff(c) {
		return nil
	}
	uid, _ := c.Get("user_id").(int64)

	loan, err := h.Svc.ByID(c.Request().Context(), loanID)
	if err != nil {
		return h.mapErr(c, "loan lookup", err)
	}
	if loan.UserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	return nil
}

func (h *Controller) mapErr(c echo.Context, op string, err error) error {
	switch loansvc.Code(err) {
	case loansvc.ErrValidation:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case loansvc.ErrLimitExceeded, loansvc.ErrUnavailable:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": err.Error()})
	case loansvc.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
	case loansvc.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.ErrBadRequest
	}
	return id, nil
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
