package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cattube/internal/logger"
	"cattube/internal/middleware"
	"cattube/internal/models"
	"cattube/internal/services"
	"cattube/internal/web"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.User, error)
	IssueToken(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error)
}

type AuthHandler struct {
	authService authService
	sessions    *middleware.Sessions
	pages       *web.Renderer
}

func NewAuthHandler(authService *services.AuthService, sessions *middleware.Sessions, pages *web.Renderer) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, pages: pages}
}

type loginPage struct {
	Page
	Next  string
	Error string
	Form  models.LoginRequest
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	render(w, h.pages, http.StatusOK, web.PageLogin, loginPage{
		Page: currentPage(h.sessions, r),
		Next: safeNext(r.URL.Query().Get("next")),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	req := models.LoginRequest{Username: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
	next := safeNext(r.PostForm.Get("next"))

	user, err := h.authService.Login(r.Context(), req)
	if err != nil {
		var unauth *services.UnauthorizedError
		if !errors.As(err, &unauth) {
			logger.Errorf("login failed: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		req.Password = ""
		render(w, h.pages, http.StatusOK, web.PageLogin, loginPage{Next: next, Error: unauth.Message, Form: req})
		return
	}

	if err := h.sessions.Login(w, r, user.ID, user.Username); err != nil {
		logger.Errorf("saving session for %s: %v", user.Username, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, next, http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		logger.Warnf("clearing session: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Token exchanges username and password for an API access token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	tokens, err := h.authService.IssueToken(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string][]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
	case *services.ConflictError:
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", e.Message, r))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	case *services.UnauthorizedError:
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", e.Message, r))
	default:
		logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
