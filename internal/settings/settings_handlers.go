package settings

import (
	"net/http"

	"onehandcoder/internal/api"
)

type SettingsHandlers struct {
	Service *SettingsService
	Errors  *api.Writer
}

func NewSettingsHandlers(service *SettingsService, errors *api.Writer) *SettingsHandlers {
	return &SettingsHandlers{Service: service, Errors: errors}
}

type updateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *SettingsHandlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	const failure = "Could not load settings"

	userID, ok := h.Errors.UserID(w, r, failure)
	if !ok {
		return
	}

	settings, err := h.Service.GetSettings(r.Context(), userID)
	if err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	api.OK(w, api.Body{
		"username":      settings.Username,
		"email":         settings.Email,
		"subscription":  settings.Subscription,
		"usedStorageMB": settings.UsedStorageMB,
		"maxStorageMB":  settings.MaxStorageMB,
	})
}

func (h *SettingsHandlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	const failure = "Update failed"

	userID, ok := h.Errors.UserID(w, r, failure)
	if !ok {
		return
	}

	var req updateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	update := Update{Username: req.Username, Email: req.Email, Password: req.Password}
	if err := h.Service.UpdateSettings(r.Context(), userID, update); err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	api.OK(w, api.Body{"message": "Account updated"})
}

func (h *SettingsHandlers) ResetProgress(w http.ResponseWriter, r *http.Request) {
	const failure = "Reset failed"

	userID, ok := h.Errors.UserID(w, r, failure)
	if !ok {
		return
	}

	if err := h.Service.ResetProgress(r.Context(), userID); err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	api.OK(w, api.Body{"message": "Progress reset"})
}
