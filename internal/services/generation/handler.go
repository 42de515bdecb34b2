package generation

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/glyphlab/emoji-maker/internal/middleware"
	"github.com/glyphlab/emoji-maker/internal/utils"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type generateRequest struct {
	Prompt string `json:"prompt" validate:"required,max=512"`
}

type generateResponse struct {
	Success bool     `json:"success"`
	Emojis  []string `json:"emojis"`
	Failed  int      `json:"failed,omitempty"`
}

// Generate turns a prompt into one or more stored emoji images
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireAuth(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req generateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.RespondValidationError(w, utils.FormatValidationErrors(err))
		return
	}

	result, err := h.service.Generate(r.Context(), userID, req.Prompt)
	if err != nil {
		logger := zerolog.Ctx(r.Context())
		switch {
		case errors.Is(err, ErrEmptyPrompt):
			utils.RespondError(w, http.StatusBadRequest, "Prompt is required")
		case errors.Is(err, ErrNothingPersisted):
			logger.Error().Err(err).Str("userId", userID).Msg("All generated images failed to persist")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save generated emojis")
		default:
			logger.Error().Err(err).Str("userId", userID).Msg("Emoji generation failed")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to generate emojis")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, generateResponse{
		Success: true,
		Emojis:  result.URLs,
		Failed:  result.Failed,
	})
}
