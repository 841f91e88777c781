package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
)

const maxSettingKeyLength = 100

type settingsHandler struct {
	responder   Responder
	logger      zerolog.Logger
	settingRepo *database.SettingRepo
}

func newSettingsHandler(settingRepo *database.SettingRepo) settingsHandler {
	logger := log.With().Str("handlerName", "settingsHandler").Logger()

	return settingsHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		settingRepo: settingRepo,
	}
}

// getSettings returns the whole site configuration mapping
// @Summary Get site settings
// @Tags Settings
// @Produce json
// @Success 200 {object} envelope "Mapping of key to {value, enabled}"
// @Router /api/settings [get]
func (h settingsHandler) getSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := h.settingRepo.All(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "settings", err))
			return
		}

		h.responder.WriteData(w, http.StatusOK, settings, "Settings retrieved successfully")
	}
}

// saveSettings upserts every entry of the body and returns the stored mapping
// @Summary Save site settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param settings body map[string]models.SettingValue true "Settings to upsert"
// @Success 200 {object} envelope "Stored settings"
// @Failure 403 {object} envelope "Missing settings:write"
// @Router /api/settings [post]
func (h settingsHandler) saveSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]models.SettingValue
		if err := decodeJSON(w, r, "settings", &body); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		for key := range body {
			if strings.TrimSpace(key) == "" || len(key) > maxSettingKeyLength {
				h.responder.WriteError(w, errs.NewInvalidFieldError(key, "setting keys must be 1-100 characters"))
				return
			}
		}

		if err := h.settingRepo.Save(r.Context(), body); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("save", "settings", err))
			return
		}

		settings, err := h.settingRepo.All(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "settings", err))
			return
		}

		h.logger.Info().Int("keys", len(body)).Msg("settings saved")
		h.responder.WriteData(w, http.StatusOK, settings, "Settings saved successfully")
	}
}
