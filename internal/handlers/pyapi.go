package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/livingvectors/lv-api/internal/middleware"
	"github.com/livingvectors/lv-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type PyAPIHandler struct {
	pyapi  PyAPIServiceInterface
	logger *zap.Logger
}

func NewPyAPIHandler(pyapi PyAPIServiceInterface, logger *zap.Logger) *PyAPIHandler {
	return &PyAPIHandler{pyapi: pyapi, logger: logger}
}

func (h *PyAPIHandler) Status(c *drift.Context) {
	if middleware.GetUserID(c) == uuid.Nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	status, err := h.pyapi.Status(c.Request.Context())
	if err != nil {
		h.logger.Warn("pyapi status check failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.PyAPIStatusResponse{
		Health: dto.PyAPIHealth{
			Status:  status.Health.Status,
			Service: status.Health.Service,
		},
		Message: status.Message,
	})
}
