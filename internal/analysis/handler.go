package analysis

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/truthguard/service-core/internal/identity"
	"github.com/truthguard/service-core/internal/kvstore"
)

// Handler exposes the /analysis/history endpoints. Ownership always comes
// from the verified principal in the request context, never from the body.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(store kvstore.Store, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: NewService(store), logger: logger}
}

// Save handles POST /analysis/history.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "No access token provided")
		return
	}
	var in SaveInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Debugw("invalid analysis payload", "err", err)
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	id, err := h.svc.Save(r.Context(), p.ID, in)
	if err != nil {
		if errors.Is(err, ErrInvalidRecord) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Warnw("save analysis failed", "principal", p.ID, "err", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error while storing analysis")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Analysis saved successfully",
		"analysisId": id,
	})
}

// List handles GET /analysis/history.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "No access token provided")
		return
	}
	recs, err := h.svc.List(r.Context(), p.ID)
	if err != nil {
		h.logger.Warnw("list analyses failed", "principal", p.ID, "err", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error while fetching analysis history")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"analyses": recs})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
