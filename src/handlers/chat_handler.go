package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/security/validation"
	"github.com/username/mango/backend/src/services"
	"github.com/username/mango/backend/src/utils"
)

const maxChatMessageLength = 1000

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// AskHandler forwards the user's question to the assistant along with
// a small financial context snapshot.
func (h *ChatHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Message = validation.SanitizeText(req.Message)
	if req.Message == "" {
		utils.SendJSONError(w, "message is required", http.StatusBadRequest)
		return
	}
	if len(req.Message) > maxChatMessageLength {
		utils.SendJSONError(w, "message is too long", http.StatusBadRequest)
		return
	}

	reply, err := h.chat.Ask(r.Context(), userID, req.Message)
	if err != nil {
		if errors.Is(err, services.ErrChatNotConfigured) {
			utils.SendJSONError(w, "Assistant is not configured", http.StatusServiceUnavailable)
			return
		}
		logger.FromContext(r.Context()).Error("Chat completion failed", "error", err)
		utils.SendJSONError(w, "Assistant request failed", http.StatusBadGateway)
		return
	}
	utils.SendJSON(w, chatResponse{Reply: reply}, http.StatusOK)
}
