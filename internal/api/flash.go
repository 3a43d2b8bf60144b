package api

import (
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-analyzer/internal/config"
	"github.com/JakeFAU/page-analyzer/internal/logging"
)

var flashCategories = []string{FlashSuccess, FlashInfo, FlashDanger}

// NewSessionStore builds the signed cookie store that carries flashes.
func NewSessionStore(cfg config.SessionConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// session returns the named session. A cookie that fails verification is
// replaced by a fresh session rather than failing the request.
func (s *Server) session(r *http.Request) *sessions.Session {
	sess, err := s.sessions.Get(r, s.cfg.Session.Name)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Debug("discarding invalid session", zap.Error(err))
	}
	return sess
}

func (s *Server) addFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	sess := s.session(r)
	sess.AddFlash(message, category)
	if err := sess.Save(r, w); err != nil {
		logging.FromContext(r.Context(), s.logger).Warn("save flash failed", zap.Error(err))
	}
}

// popFlashes drains pending flashes. It must run before the response body is written.
func (s *Server) popFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	sess := s.session(r)
	var out []Flash
	for _, category := range flashCategories {
		for _, v := range sess.Flashes(category) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Category: category, Message: msg})
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		logging.FromContext(r.Context(), s.logger).Warn("clear flashes failed", zap.Error(err))
	}
	return out
}
