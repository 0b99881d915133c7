package analytics

import (
	"net/http"
	"time"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes the sales summary endpoint.
type Handler struct {
	Svc *Service
}

// Summary returns aggregates for a date range. from/to are RFC 3339; both
// empty means today.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be RFC 3339", nil)
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must be RFC 3339", nil)
			return
		}
		to = parsed
	}
	if from.IsZero() != to.IsZero() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from and to must be supplied together", nil)
		return
	}

	summary, err := h.Svc.Summary(r.Context(), from, to)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}
