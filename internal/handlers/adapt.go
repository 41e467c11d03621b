package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/handsomefox/nextep/internal/logger"
	"github.com/handsomefox/nextep/internal/upstream"
)

type HandlerWithErr func(w http.ResponseWriter, r *http.Request) error

type Error struct {
	Status  int
	Message string
}

func (e Error) Error() string {
	return e.Message + " code=" + strconv.FormatInt(int64(e.Status), 10)
}

// internalMessage is the only body an unclassified failure gets; the cause
// goes to the log.
const internalMessage = "internal error"

// Adapt renders errors returned by h as {"error": ...}. Failed upstream calls
// become 502 with their message; anything unclassified is a 500.
func Adapt(h HandlerWithErr) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		var statusErr *Error
		if errors.As(err, &statusErr) {
			writeJSON(w, statusErr.Status, &errorResponse{Error: statusErr.Message})
			return
		}
		if upstream.IsUpstream(err) {
			slog.WarnContext(r.Context(), "upstream call failed", slog.String("path", r.URL.Path), logger.Error(err))
			writeJSON(w, http.StatusBadGateway, &errorResponse{Error: err.Error()})
			return
		}
		slog.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: internalMessage})
	})
}
