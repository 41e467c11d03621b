package handlers

import (
	"net/http"

	"github.com/handsomefox/nextep/internal/logger"
)

func (h *Handler) MiddlewareRequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok, err := h.currentSession(r)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "session lookup failed", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: "session lookup failed"})
			return
		}
		if !ok {
			writeJSON(w, http.StatusUnauthorized, &errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
