package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bagvault/api/internal/dto"
	"github.com/bagvault/api/internal/middleware"
	"github.com/bagvault/api/internal/repository"
)

// ProfileHandler lets an authenticated user patch their own profile
// fields. Avatar uploads travel a separate path; here only the text
// fields change.
type ProfileHandler struct {
	Users *repository.UserRepo
}

func NewProfileHandler(users *repository.UserRepo) *ProfileHandler {
	return &ProfileHandler{Users: users}
}

// Update applies the provided fields and returns the refreshed record.
func (h *ProfileHandler) Update(c echo.Context) error {
	req := middleware.Body[dto.UpdateProfileRequest](c)
	claims := middleware.Claims(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	patch := repository.ProfileUpdate{
		DisplayName: req.DisplayName,
		Location:    req.Location,
		Phone:       req.Phone,
	}
	if err := h.Users.UpdateProfile(ctx, claims.UserID(), patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, fail("User not found"))
		}
		return err
	}

	u, err := h.Users.GetByID(ctx, claims.UserID())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok("Profile updated successfully", echo.Map{"user": u.Public()}))
}
