package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/livingvectors/lv-api/internal/middleware"
	"github.com/livingvectors/lv-api/internal/services"
	"github.com/livingvectors/lv-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	users  UserServiceInterface
	logger *zap.Logger
}

func NewProfileHandler(users UserServiceInterface, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, logger: logger}
}

func (h *ProfileHandler) Get(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, dto.StatusErrorResponse{Error: "Unauthorized", Status: http.StatusUnauthorized})
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, dto.StatusErrorResponse{Error: "User not found", Status: http.StatusNotFound})
			return
		}
		h.logger.Error("failed to load profile", zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.StatusErrorResponse{Error: "Internal server error", Status: http.StatusInternalServerError})
		return
	}

	c.JSON(http.StatusOK, dto.ProfileEnvelope{Body: profile, Status: http.StatusOK})
}

// Update overwrites every writable column. Fields left out of the body are cleared.
func (h *ProfileHandler) Update(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.BindJSON(&req); err != nil {
		h.logger.Warn("invalid profile update body", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return
	}

	profile, err := h.users.UpdateProfile(c.Request.Context(), userID, req.ToModel())
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
			return
		}
		h.logger.Error("failed to update profile", zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, profile)
}
