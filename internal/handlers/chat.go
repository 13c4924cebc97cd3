package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/livingvectors/lv-api/internal/middleware"
	"github.com/livingvectors/lv-api/internal/services"
	"github.com/livingvectors/lv-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type ChatHandler struct {
	pyapi  PyAPIServiceInterface
	logger *zap.Logger
}

func NewChatHandler(pyapi PyAPIServiceInterface, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{pyapi: pyapi, logger: logger}
}

// Chat relays one interview message upstream. Upstream failures keep their status code.
func (h *ChatHandler) Chat(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error: " + err.Error()})
		return
	}

	message, ok := req.Message.(string)
	if !ok || message == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Message is required"})
		return
	}

	history := make([]services.HistoryMessage, 0, len(req.ConversationHistory))
	for _, m := range req.ConversationHistory {
		history = append(history, services.HistoryMessage{Role: m.Role, Content: m.Content})
	}

	reply, err := h.pyapi.Chat(c.Request.Context(), message, history)
	if err != nil {
		if ue, ok := services.IsUpstreamError(err); ok {
			h.logger.Warn("chat upstream error", zap.Int("status", ue.Status), zap.Any("detail", ue.Detail))
			c.JSON(ue.Status, dto.ErrorResponse{Error: ue.Detail})
			return
		}
		h.logger.Error("chat request failed", zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.ChatMessageResponse{
		ID:        reply.ID,
		Role:      reply.Role,
		Content:   reply.Content,
		Timestamp: reply.Timestamp,
	})
}
