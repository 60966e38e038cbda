package account

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/truthguard/service-core/internal/identity"
	"github.com/truthguard/service-core/internal/kvstore"
)

// Handler exposes the HTTP endpoints for accounts: signup, admin bootstrap,
// profile, login tracking and the public admin-existence probe.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(store kvstore.Store, provider identity.Provider, setupKey string, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: NewService(store, provider, setupKey), logger: logger}
}

// Service exposes the underlying service, mainly for wiring in tests.
func (h *Handler) Service() *Service { return h.svc }

// AdminExists reports whether any admin account exists. Public: the setup
// page uses it to decide whether to offer bootstrap.
func (h *Handler) AdminExists(w http.ResponseWriter, r *http.Request) {
	hasAdmins, err := h.svc.HasAnyAdmin(r.Context())
	if err != nil {
		h.logger.Warnw("admin exists check failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to check admin status", "")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"hasAdmins": hasAdmins})
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		h.writeError(w, http.StatusBadRequest, "invalid payload", "")
		return
	}
	p, err := h.svc.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.logger.Warnw("signup failed", "email", req.Email, "err", err)
		switch {
		case errors.Is(err, ErrMissingCredentials):
			h.writeError(w, http.StatusBadRequest, "Email and password are required", "")
		case errors.Is(err, identity.ErrInvalidCredential):
			h.writeError(w, http.StatusBadRequest, err.Error(), "")
		case errors.Is(err, identity.ErrEmailTaken):
			h.writeError(w, http.StatusBadRequest, "A user with this email already exists", "")
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error during signup", "")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"user":    p,
		"message": "User created successfully",
	})
}

// AdminSignupRequest is the body for POST /auth/admin/signup. The setup key
// travels in the body, not a header: the caller is not authenticated yet.
type AdminSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	AdminKey string `json:"adminKey"`
}

func (h *Handler) AdminSignup(w http.ResponseWriter, r *http.Request) {
	var req AdminSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid admin signup payload", "err", err)
		h.writeError(w, http.StatusBadRequest, "invalid payload", "")
		return
	}
	p, promoted, err := h.svc.CreateAdmin(r.Context(), req.Email, req.Password, req.AdminKey)
	if err != nil {
		h.logger.Warnw("admin signup failed", "email", req.Email, "err", err)
		switch {
		case errors.Is(err, ErrBadSetupKey):
			h.writeError(w, http.StatusForbidden, "Invalid admin key", "")
		case errors.Is(err, ErrMissingCredentials):
			h.writeError(w, http.StatusBadRequest, "Email and password are required", "")
		case errors.Is(err, ErrAdminExists):
			h.writeError(w, http.StatusConflict,
				"Admin user with this email already exists",
				"Try logging in with the existing admin credentials instead")
		case errors.Is(err, identity.ErrEmailTaken):
			h.writeError(w, http.StatusConflict,
				"A user with this email already exists",
				"Try a different email address or contact support if this should be upgraded to admin")
		case errors.Is(err, identity.ErrInvalidCredential):
			h.writeError(w, http.StatusBadRequest, err.Error(), "")
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error during admin signup", "")
		}
		return
	}
	message := "Admin user created successfully"
	if promoted {
		message = "Existing user upgraded to admin successfully"
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"user":    p,
		"message": message,
	})
}

// ProfileUser is the user object returned by GET /auth/profile.
type ProfileUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      *string    `json:"name"`
	IsAdmin   bool       `json:"isAdmin"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// Profile returns the caller's profile. When the stored record is absent the
// response falls back to the principal's provider metadata so a principal
// created out-of-band still gets a usable profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "No access token provided", "")
		return
	}

	out := ProfileUser{ID: p.ID, Email: p.Email}
	rec, err := h.svc.GetProfile(r.Context(), p.ID)
	switch {
	case err == nil:
		out.Name = rec.Name
		out.IsAdmin = rec.IsAdmin
		last := rec.LastLogin
		out.LastLogin = &last
	case errors.Is(err, ErrRecordNotFound):
		if name, ok := p.Metadata["name"].(string); ok && name != "" {
			out.Name = &name
		}
		if isAdmin, ok := p.Metadata["isAdmin"].(bool); ok {
			out.IsAdmin = isAdmin
		}
	default:
		h.logger.Warnw("profile fetch failed", "principal", p.ID, "err", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error while fetching profile", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"user": out})
}

// UpdateLogin stamps a fresh lastLogin on the caller's record.
func (h *Handler) UpdateLogin(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "No access token provided", "")
		return
	}
	if err := h.svc.TouchLogin(r.Context(), p.ID); err != nil {
		h.logger.Warnw("update login failed", "principal", p.ID, "err", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error while updating login", "")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Last login updated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the {error, suggestion?} failure body. The suggestion is
// populated only for Conflict-class responses.
func (h *Handler) writeError(w http.ResponseWriter, status int, msg, suggestion string) {
	body := map[string]string{"error": msg}
	if suggestion != "" {
		body["suggestion"] = suggestion
	}
	h.writeJSON(w, status, body)
}
