package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medicheck-server/internal/assistant"
	"medicheck-server/internal/utils"
)

// AssistantHandler relays questions to the help chatbot.
type AssistantHandler struct {
	Service *assistant.Service
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(svc *assistant.Service) *AssistantHandler {
	return &AssistantHandler{Service: svc}
}

// ChatRequest is one user message.
type ChatRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// Chat answers one message.
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	reply, err := h.Service.Reply(c.Request.Context(), req.Message)
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, assistant.ErrNotConfigured):
		utils.ServiceUnavailable(c, "Assistant is not available")
	case err != nil:
		utils.Error(c, http.StatusBadGateway, "Assistant failed to respond")
	default:
		utils.Success(c, "Reply generated", ChatResponse{Reply: reply})
	}
}
