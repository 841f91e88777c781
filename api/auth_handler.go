package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
)

type authHandler struct {
	responder    Responder
	logger       zerolog.Logger
	userRepo     *database.UserRepo
	sessions     sessionManager
	secureCookie bool
}

func newAuthHandler(userRepo *database.UserRepo, sessions sessionManager, secureCookie bool) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder:    NewResponder(logger),
		logger:       logger,
		userRepo:     userRepo,
		sessions:     sessions,
		secureCookie: secureCookie,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=40,alphanum"`
	Name     string `json:"name" validate:"max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

func (h authHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h authHandler) startSession(w http.ResponseWriter, status int, user *models.User, message string) {
	token, expiresAt, err := h.sessions.issue(*user)
	if err != nil {
		h.responder.WriteError(w, errs.NewInternalErrorWithCause("failed to issue session", err))
		return
	}
	h.setSessionCookie(w, token, expiresAt)
	h.responder.WriteData(w, status, sessionResponse{Token: token, ExpiresAt: expiresAt, User: *user}, message)
}

// login checks a username and password and opens a session
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Username and password"
// @Success 200 {object} envelope "Session token and user"
// @Failure 401 {object} envelope "Invalid credentials"
// @Router /api/auth/login [post]
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, "login", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user, err := h.userRepo.FindByUsername(r.Context(), req.Username)
		if errs.IsNotFound(err) {
			h.responder.WriteError(w, errs.NewInvalidCredentialsError())
			return
		}
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "user", err))
			return
		}

		if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			h.responder.WriteError(w, errs.NewInvalidCredentialsError())
			return
		}

		h.logger.Info().Str("username", user.Username).Msg("user logged in")
		h.startSession(w, http.StatusOK, user, "Logged in successfully")
	}
}

// register creates a subscriber account and opens a session for it
func (h authHandler) register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(w, r, "registration", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.responder.WriteError(w, errs.NewInternalErrorWithCause("failed to hash password", err))
			return
		}

		user := models.User{
			Username:     req.Username,
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: string(hash),
			RoleName:     models.RoleSubscriber,
		}
		if err := h.userRepo.Create(r.Context(), &user); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "user", err))
			return
		}

		h.startSession(w, http.StatusCreated, &user, "Account created successfully")
	}
}

func (h authHandler) me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := ctxGetSession(r.Context())

		user, err := h.userRepo.FindByID(r.Context(), session.UserID)
		if errs.IsNotFound(err) {
			h.responder.WriteError(w, errs.NewInvalidTokenError())
			return
		}
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "user", err))
			return
		}

		h.responder.WriteData(w, http.StatusOK, user, "User retrieved successfully")
	}
}

func (h authHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		h.responder.WriteData(w, http.StatusOK, nil, "Logged out successfully")
	}
}
