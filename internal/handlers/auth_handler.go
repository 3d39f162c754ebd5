package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/captainspark/backend/internal/models"
	"github.com/captainspark/backend/libs/auth/middleware"
	"github.com/captainspark/backend/libs/handlers"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AccountService is the interface that wraps methods for onboarding and sign-in business logic.
type AccountService interface {
	// Method CreateAccount validates the onboarding form, creates the learner and emails a sign-in link.
	//
	// Welcome narration is best effort: a TTS failure never fails the call.
	// If the email is taken, services.ValidationError or repositories.ErrEmailTaken will be returned.
	CreateAccount(ctx context.Context, req *models.CreateAccountRequest) (*models.Learner, error)
	// Method RequestLogin emails a fresh sign-in link.
	//
	// If no learner uses "email", services.ErrEmailNotFound will be returned.
	RequestLogin(ctx context.Context, email string) error
	// Method VerifyMagicLink consumes a sign-in link and returns an access token.
	//
	// Unknown, used or expired links return services.ErrInvalidMagicLink.
	VerifyMagicLink(ctx context.Context, token string) (*models.VerifyResponse, error)
	// Method GetProfile returns the learner profile with signed narration URLs.
	GetProfile(ctx context.Context, learnerID string) (*models.Profile, error)
}

// AuthHandler handles onboarding and magic link HTTP requests
type AuthHandler struct {
	handlers.BaseHandler
	accountService    AccountService
	accessTokenExpiry time.Duration
	secureCookies     bool
	limiter           func(http.Handler) http.Handler
}

// NewAuthHandler creates a new auth handler.
// limiter, when not nil, guards the register and login routes.
func NewAuthHandler(
	accountService AccountService,
	accessTokenExpiry time.Duration,
	secureCookies bool,
	limiter func(http.Handler) http.Handler,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		BaseHandler:       handlers.BaseHandler{Logger: logger},
		accountService:    accountService,
		accessTokenExpiry: accessTokenExpiry,
		secureCookies:     secureCookies,
		limiter:           limiter,
	}
}

// RegisterRoutes registers the public auth routes
// Note: This assumes the router is already scoped to /api/v1
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if h.limiter != nil {
				r.Use(h.limiter)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})
		r.Post("/verify", h.Verify)
	})
}

// RegisterLearnerRoutes registers routes that need a learner token
func (h *AuthHandler) RegisterLearnerRoutes(r chi.Router) {
	r.Get("/me", h.GetProfile)
}

// Register handles POST /auth/register
// @Summary Create a learner account
// @Description Create a learner from the onboarding form, record the welcome narration and email a sign-in link
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.CreateAccountRequest true "Onboarding form"
// @Success 201 {object} models.Learner
// @Failure 400 {object} map[string]string "Invalid form"
// @Failure 409 {object} map[string]string "Email already registered"
// @Failure 502 {object} map[string]string "Sign-in email could not be sent"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	learner, err := h.accountService.CreateAccount(r.Context(), &req)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "create account")
		return
	}

	h.RespondJSON(w, http.StatusCreated, learner)
}

// Login handles POST /auth/login
// @Summary Request a magic link
// @Description Email a single use sign-in link to a registered address
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request"
// @Success 202 {object} map[string]string "Magic link sent"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Email not found"
// @Failure 502 {object} map[string]string "Sign-in email could not be sent"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.accountService.RequestLogin(r.Context(), req.Email); err != nil {
		respondServiceError(&h.BaseHandler, w, err, "request login")
		return
	}

	h.RespondJSON(w, http.StatusAccepted, map[string]string{"message": "magic link sent"})
}

// Verify handles POST /auth/verify
// @Summary Verify a magic link
// @Description Exchange a magic link token for an access token. The token is also set as an HTTP-only cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.VerifyRequest false "Token (optional if passed as ?token=)"
// @Param token query string false "Magic link token"
// @Success 200 {object} models.VerifyResponse
// @Failure 401 {object} map[string]string "Invalid or expired magic link"
// @Router /auth/verify [post]
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var req models.VerifyRequest
		if !h.DecodeJSON(w, r, &req) {
			return
		}
		token = req.Token
	}

	resp, err := h.accountService.VerifyMagicLink(r.Context(), token)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "verify magic link")
		return
	}

	h.setAccessCookie(w, resp.AccessToken)
	h.RespondJSON(w, http.StatusOK, resp)
}

// GetProfile handles GET /me
// @Summary Get own profile
// @Description Get the signed-in learner's profile, XP, streak and welcome narration URLs
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Profile
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 404 {object} map[string]string "Learner not found"
// @Router /me [get]
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := currentLearner(&h.BaseHandler, w, r)
	if !ok {
		return
	}

	profile, err := h.accountService.GetProfile(r.Context(), learnerID)
	if err != nil {
		respondServiceError(&h.BaseHandler, w, err, "get profile")
		return
	}

	h.RespondJSON(w, http.StatusOK, profile)
}

// setAccessCookie sets the access token as an HTTP-only cookie
func (h *AuthHandler) setAccessCookie(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.accessTokenExpiry.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
