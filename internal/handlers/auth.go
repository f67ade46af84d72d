package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/productcatalog/apiserver/internal/services"
	"github.com/productcatalog/apiserver/types"
	"github.com/sirupsen/logrus"
)

const (
	tokenCookieName = "token"

	msgCredentialsRequired = "Username and password required"
	msgUserExists          = "User exists"
	msgPasswordTooLong     = "Password too long"
	msgInvalidCredentials  = "Invalid credentials"
	msgNoToken             = "No token provided"
	msgTokenNotFound       = "Token not found"
	msgInvalidToken        = "Invalid or expired token"
	msgAuthenticated       = "Authenticated"
	msgSuccess             = "success"
)

// publicPrefixes are served without a session.
var publicPrefixes = []string{"/api/register", "/api/login"}

// Tokens issues and verifies session tokens.
type Tokens interface {
	Issue(identity types.Identity) (string, error)
	Verify(token string) (types.Identity, error)
	TTL() time.Duration
}

// AuthHandler provides cookie-based session endpoints.
type AuthHandler struct {
	userService  *services.UserService
	tokens       Tokens
	secureCookie bool
	log          logrus.FieldLogger
}

// NewAuthHandler constructs an AuthHandler. secureCookie marks the session
// cookie Secure, which production deployments need.
func NewAuthHandler(userService *services.UserService, tokens Tokens, secureCookie bool, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		tokens:       tokens,
		secureCookie: secureCookie,
		log:          log,
	}
}

// AuthRouter registers auth routes on the given router. The check route
// relies on the gate having run.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Get("/auth/check", handler.Check)
}

// RequireAuth is the session gate. Requests under the public prefixes pass
// through untouched; every other request needs a valid token cookie.
func RequireAuth(tokens Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if r.Header.Get("Cookie") == "" {
				writeError(w, http.StatusUnauthorized, msgNoToken)
				return
			}

			cookie, err := r.Cookie(tokenCookieName)
			if err != nil || strings.TrimSpace(cookie.Value) == "" {
				writeError(w, http.StatusUnauthorized, msgTokenNotFound)
				return
			}

			identity, err := tokens.Verify(cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

func isPublicPath(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Register creates a new account and starts a session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}

	user, err := h.userService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserExists):
			writeError(w, http.StatusConflict, msgUserExists)
			return
		case errors.Is(err, services.ErrPasswordTooLong):
			writeError(w, http.StatusBadRequest, msgPasswordTooLong)
			return
		}
		h.log.WithError(err).Error("register: failed to create user")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	if !h.startSession(w, user) {
		return
	}
	h.log.WithField("user_id", user.ID).Info("user registered")
	writeJSON(w, http.StatusCreated, MessageResponse{Message: msgSuccess})
}

// Login verifies credentials and starts a session. Unknown users and
// wrong passwords get the same answer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		h.log.WithError(err).Error("login failed")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	if !h.startSession(w, user) {
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgSuccess})
}

// Check reports the identity of a valid session.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgInvalidToken)
		return
	}
	writeJSON(w, http.StatusOK, CheckResponse{Message: msgAuthenticated, User: identity})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, user types.User) bool {
	token, err := h.tokens.Issue(types.Identity{ID: user.ID, Username: user.Username})
	if err != nil {
		h.log.WithError(err).Error("failed to issue token")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CheckResponse struct {
	Message string         `json:"message"`
	User    types.Identity `json:"user"`
}
