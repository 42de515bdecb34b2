package profile

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

type bootstrapResponse struct {
	Success bool            `json:"success"`
	Profile *models.Profile `json:"profile"`
}

// Bootstrap lazily creates the caller's profile on first authenticated contact
func (h *Handler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.RequireAuth(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	p, err := h.service.EnsureProfile(r.Context(), userID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("userId", userID).Msg("Profile bootstrap failed")
		utils.RespondError(w, http.StatusInternalServerError, "Failed to initialize profile")
		return
	}

	utils.RespondJSON(w, http.StatusOK, bootstrapResponse{Success: true, Profile: p})
}
