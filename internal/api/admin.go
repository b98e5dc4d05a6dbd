package api

import "net/http"

// ClearCache drops every cached page. The endpoint does not exist for
// anyone but staff.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	u := viewer(r)
	if u == nil || !u.IsStaff {
		h.NotFound(w, r)
		return
	}

	n, err := h.cache.Clear(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Infow("Page cache cleared", "user_id", u.ID, "pages", n)
	h.writeJSON(w, http.StatusOK, CacheClearDTO{Cleared: n})
}
