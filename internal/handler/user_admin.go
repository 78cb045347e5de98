package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bagvault/api/internal/dto"
	"github.com/bagvault/api/internal/middleware"
	"github.com/bagvault/api/internal/model"
	"github.com/bagvault/api/internal/repository"
)

// AdminUserHandler covers the admin-panel user management routes.
// Blocking is the enforcement half of the status gate: a blocked user's
// next authenticated request is rejected even if their token is still
// cryptographically valid.
type AdminUserHandler struct {
	Users *repository.UserRepo
}

func NewAdminUserHandler(users *repository.UserRepo) *AdminUserHandler {
	return &AdminUserHandler{Users: users}
}

// UpdateStatus blocks or unblocks the account named in the path.
func (h *AdminUserHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, fail("Invalid user id"))
	}
	req := middleware.Body[dto.UpdateStatusRequest](c)
	status := model.AccountStatus(req.AccountStatus)

	// An admin cannot block themselves out of the panel.
	if claims := middleware.Claims(c); claims != nil && claims.UserID() == id && status == model.StatusBlocked {
		return c.JSON(http.StatusBadRequest, fail("You cannot block your own account"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, fail("User not found"))
		}
		return err
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Account status updated", echo.Map{"user": u.Public()}))
}
