package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/handsomefox/nextep/internal/logger"
	"github.com/handsomefox/nextep/internal/store"
	"github.com/handsomefox/nextep/internal/trakt"
)

const (
	loginPath           = "/login"
	errNoCode           = "no_code"
	errAuthFailed       = "auth_failed"
	callbackErrorParam  = "error"
	postLoginRedirectTo = "/"
)

func (h *Handler) getLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.trakt.AuthorizeURL(), http.StatusFound)
}

// getCallback finishes the OAuth flow. Failures always redirect to the login
// page with an error code, never to an error body.
func (h *Handler) getCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		redirectLoginError(w, r, errNoCode)
		return
	}

	tok, err := h.trakt.Exchange(ctx, code)
	if err != nil {
		h.logger.WarnContext(ctx, "oauth: code exchange failed", logger.Error(err))
		redirectLoginError(w, r, errAuthFailed)
		return
	}

	settings, err := h.trakt.UserSettings(ctx, tok.AccessToken)
	if err != nil {
		h.logger.WarnContext(ctx, "oauth: user settings failed", logger.Error(err))
		redirectLoginError(w, r, errAuthFailed)
		return
	}

	lifetime := tok.Lifetime()
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	if err := h.store.SaveSession(ctx, sessionFromSettings(tok.AccessToken, settings), lifetime); err != nil {
		h.logger.ErrorContext(ctx, "oauth: save session failed", logger.Error(err))
		redirectLoginError(w, r, errAuthFailed)
		return
	}

	setAuthCookie(w, tok.AccessToken, lifetime)
	h.logger.InfoContext(ctx, "oauth: login", slog.String("user", settings.User.Username))
	http.Redirect(w, r, postLoginRedirectTo, http.StatusFound)
}

func redirectLoginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, loginPath+"?"+callbackErrorParam+"="+code, http.StatusFound)
}

func sessionFromSettings(token string, settings *trakt.Settings) *store.Session {
	u := settings.User
	slug := u.IDs.Slug
	if slug == "" {
		slug = u.Username
	}
	return &store.Session{
		TokenHash: hashToken(token),
		Slug:      slug,
		Username:  u.Username,
		Name:      nullString(u.Name),
		AvatarURL: nullString(u.Images.Avatar.Full),
	}
}

func nullString(val string) sql.Null[string] {
	val = strings.TrimSpace(val)
	if val == "" {
		return sql.Null[string]{}
	}
	return sql.Null[string]{Valid: true, V: val}
}

func (h *Handler) postLogout(w http.ResponseWriter, r *http.Request) error {
	if token := authToken(r); token != "" {
		if err := h.store.DeleteSession(r.Context(), hashToken(token)); err != nil && !isNoRows(err) {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	clearAuthCookie(w)
	writeJSON(w, http.StatusOK, &sessionResponse{Authenticated: false, ImageBase: h.imageBase})
	return nil
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) error {
	sess, ok, err := h.currentSession(r)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	resp := &sessionResponse{Authenticated: ok, ImageBase: h.imageBase}
	if ok {
		resp.Username = ptr(sess.Username)
		if sess.Name.Valid {
			resp.Name = ptr(sess.Name.V)
		}
		if sess.AvatarURL.Valid {
			resp.AvatarURL = ptr(sess.AvatarURL.V)
		}
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

// getProfile returns the live Trakt settings of the logged in user.
func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) error {
	settings, err := h.trakt.UserSettings(r.Context(), authToken(r))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, settings)
	return nil
}

// currentSession resolves the auth cookie against the session table.
func (h *Handler) currentSession(r *http.Request) (store.Session, bool, error) {
	token := authToken(r)
	if token == "" {
		return store.Session{}, false, nil
	}
	sess, err := h.store.GetSession(r.Context(), hashToken(token))
	if err != nil {
		if isNoRows(err) {
			return store.Session{}, false, nil
		}
		return store.Session{}, false, err
	}
	return sess, true, nil
}
