package account

import (
	"net/http"

	"onehandcoder/internal/api"
)

type AccountHandlers struct {
	Service *AccountService
	Errors  *api.Writer
}

func NewAccountHandlers(service *AccountService, errors *api.Writer) *AccountHandlers {
	return &AccountHandlers{Service: service, Errors: errors}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type progressRequest struct {
	Code     *string  `json:"code"`
	Progress *float64 `json:"progress"`
}

type programRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type courseRequest struct {
	CourseName string `json:"courseName"`
}

func (h *AccountHandlers) Register(w http.ResponseWriter, r *http.Request) {
	const failure = "Registration failed"

	var req credentialsRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	token, err := h.Service.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	api.OK(w, api.Body{"message": "User registered successfully", "token": token})
}

func (h *AccountHandlers) Login(w http.ResponseWriter, r *http.Request) {
	const failure = "Login failed"

	var req credentialsRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	token, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	api.OK(w, api.Body{"message": "Logged in", "token": token})
}

func (h *AccountHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to load profile"

	userID, ok := h.Errors.UserID(w, r, failure)
	if !ok {
		return
	}

	user, err := h.Service.Profile(r.Context(), userID)
	if err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	api.OK(w, api.Body{
		"username":         user.Username,
		"email":            user.Email,
		"subscription":     user.Subscription,
		"progress":         user.Progress,
		"history":          user.History,
		"completedCourses": user.CompletedCourses,
		"savedPrograms":    user.SavedPrograms,
	})
}

func (h *AccountHandlers) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	const failure = "Could not update progress"

	userID, ok := h.Errors.UserID(w, r, failure)
	if !ok {
		return
	}

	var req progressRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	progress, err := h.Service.UpdateProgress(r.Context(), userID, req.Code, req.Progress)
	if err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	api.OK(w, api.Body{"message": "Progress updated", "progress": progress})
}

func (h *AccountHandlers) SaveProgram(w http.ResponseWriter, r *http.Request) {
	const failure = "Could not save program"

	userID, ok := h.Errors.UserID(w, r, failure)
	if !ok {
		return
	}

	var req programRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	programs, err := h.Service.SaveProgram(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	api.OK(w, api.Body{"message": "Program saved", "savedPrograms": programs})
}

func (h *AccountHandlers) CompleteCourse(w http.ResponseWriter, r *http.Request) {
	const failure = "Could not mark course"

	userID, ok := h.Errors.UserID(w, r, failure)
	if !ok {
		return
	}

	var req courseRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	courses, err := h.Service.CompleteCourse(r.Context(), userID, req.CourseName)
	if err != nil {
		h.Errors.Error(w, r, err, failure)
		return
	}

	api.OK(w, api.Body{"message": "Course marked completed", "completedCourses": courses})
}
