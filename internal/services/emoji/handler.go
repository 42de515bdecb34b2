package emoji

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/glyphlab/emoji-maker/internal/middleware"
	"github.com/glyphlab/emoji-maker/internal/models"
	"github.com/glyphlab/emoji-maker/internal/utils"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type listResponse struct {
	Emojis []models.Emoji `json:"emojis"`
}

// List returns every emoji in the catalog, newest first. Authenticated
// callers additionally see which emojis they have liked.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.GetUserID(r.Context())
	emojis, err := h.service.List(r.Context(), viewerID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to list emojis")
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch emojis")
		return
	}

	utils.RespondJSON(w, http.StatusOK, listResponse{Emojis: emojis})
}

type toggleLikeRequest struct {
	EmojiID int64 `json:"emojiId" validate:"required,gt=0"`
	Like    bool  `json:"like"`
}

type toggleLikeResponse struct {
	Success    bool  `json:"success"`
	LikesCount int64 `json:"likes_count"`
}

// ToggleLike sets or clears the caller's like for one emoji
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireAuth(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req toggleLikeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Emoji ID is required")
		return
	}

	count, err := h.service.ToggleLike(r.Context(), userID, req.EmojiID, req.Like)
	if err != nil {
		switch err {
		case ErrEmojiNotFound:
			utils.RespondError(w, http.StatusNotFound, "Emoji not found")
		default:
			zerolog.Ctx(r.Context()).Error().Err(err).
				Str("userId", userID).
				Int64("emojiId", req.EmojiID).
				Msg("Failed to toggle like")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to process like")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, toggleLikeResponse{Success: true, LikesCount: count})
}
