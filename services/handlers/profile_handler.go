package handlers

import (
	"strconv"

	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/middleware"
	"github.com/ezfoia/foia_api/shared"
	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	profileSvc ProfileServiceInterface
}

func NewProfileHandler(profileSvc ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// @Summary Get profile
// @Description Notification preferences and phone number of the caller
// @Tags profile
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.ProfileResponse}
// @Router /api/v1/profile [get]
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	profile, err := h.profileSvc.GetProfile(middleware.CurrentUser(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", profile)
}

// @Summary Update profile
// @Description Update name, phone and notification preferences. Omitted fields are left unchanged.
// @Tags profile
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param request body dto.UpdateProfileRequest true "Profile changes"
// @Success 200 {object} shared.Response{data=dto.ProfileResponse}
// @Failure 400 {object} shared.ErrorResponse{errors=[]dto.ValidationError}
// @Router /api/v1/profile [put]
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	profile, err := h.profileSvc.UpdateProfile(middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Profile updated", profile)
}

// @Summary Recent activity
// @Description Newest entries of the caller's activity log
// @Tags profile
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param limit query int false "Entries to return" default(20)
// @Success 200 {object} shared.Response{data=dto.ActivityListResponse}
// @Router /api/v1/profile/activity [get]
func (h *ProfileHandler) RecentActivity(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	activity, err := h.profileSvc.RecentActivity(middleware.CurrentUser(c), limit)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", activity)
}
