package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-analyzer/internal/analyzer"
	"github.com/JakeFAU/page-analyzer/internal/logging"
	"github.com/JakeFAU/page-analyzer/internal/web"
)

// validationMessages maps NormalizeURL sentinels to the text shown under the form.
var validationMessages = []error{
	analyzer.ErrURLRequired,
	analyzer.ErrURLTooLong,
	analyzer.ErrInvalidURL,
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	view := IndexView{Page: Page{Flashes: s.popFlashes(w, r)}}
	s.render(w, r, http.StatusOK, web.PageIndex, view)
}

func (s *Server) createURL(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}
	raw := r.PostForm.Get("url")

	u, existed, err := s.svc.AddURL(r.Context(), raw)
	if err != nil {
		if analyzer.IsValidationError(err) {
			view := IndexView{URL: raw, Error: validationMessage(err)}
			s.render(w, r, http.StatusUnprocessableEntity, web.PageIndex, view)
			return
		}
		s.serverError(w, r, err)
		return
	}

	if existed {
		s.addFlash(w, r, FlashInfo, msgURLExists)
	} else {
		s.addFlash(w, r, FlashSuccess, msgURLAdded)
	}
	http.Redirect(w, r, urlPath(u.ID), http.StatusFound)
}

func (s *Server) listURLs(w http.ResponseWriter, r *http.Request) {
	urls, err := s.svc.ListURLs(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view := URLsView{Page: Page{Title: "Sites", Flashes: s.popFlashes(w, r)}, URLs: urls}
	s.render(w, r, http.StatusOK, web.PageURLs, view)
}

func (s *Server) showURL(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	u, checks, err := s.svc.GetURL(r.Context(), id)
	if errors.Is(err, analyzer.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view := URLView{
		Page:   Page{Title: u.Name, Flashes: s.popFlashes(w, r)},
		URL:    u,
		Checks: checks,
	}
	s.render(w, r, http.StatusOK, web.PageURL, view)
}

func (s *Server) createCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	_, err := s.svc.CheckURL(r.Context(), id)
	switch {
	case errors.Is(err, analyzer.ErrNotFound):
		s.notFound(w, r)
		return
	case errors.Is(err, analyzer.ErrCheckFailed):
		s.addFlash(w, r, FlashDanger, msgCheckFailed)
	case err != nil:
		s.serverError(w, r, err)
		return
	default:
		s.addFlash(w, r, FlashSuccess, msgChecked)
	}
	http.Redirect(w, r, urlPath(id), http.StatusFound)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context(), s.logger).Error("request failed", zap.Error(err))
	s.renderError(w, r, http.StatusInternalServerError)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int) {
	view := ErrorView{
		Page:      Page{Title: http.StatusText(status)},
		Status:    status,
		Message:   errorMessage(status),
		RequestID: requestID(r.Context()),
	}
	s.render(w, r, status, web.PageError, view)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if err := s.renderer.Render(w, status, page, data); err != nil {
		logging.FromContext(r.Context(), s.logger).Error("render failed", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func errorMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "Page not found"
	case http.StatusBadRequest:
		return "Bad request"
	default:
		return "Internal server error"
	}
}

func validationMessage(err error) string {
	for _, sentinel := range validationMessages {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return analyzer.ErrInvalidURL.Error()
}

func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func urlPath(id int64) string {
	return fmt.Sprintf("/urls/%d", id)
}
