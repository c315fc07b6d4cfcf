package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jonathan/resumind/internal/server/middleware"
	"github.com/jonathan/resumind/internal/types"
	"github.com/jonathan/resumind/internal/users"
	"github.com/jonathan/resumind/internal/web"
)

// safeNext returns next when it is a local path, "/" otherwise.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// render writes a page, falling back to a plain error when the template fails.
func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	var buf strings.Builder
	if err := s.renderer.Render(&buf, page, data); err != nil {
		s.logger.Error("failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// renderError shows the error page for err.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, user *types.User, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logFailure(r, err)
	}
	s.render(w, status, web.PageError, web.ErrorPage{
		Layout:  web.Layout{Title: "Error", User: user},
		Status:  status,
		Message: PublicMessage(err),
	})
}

// pageUser loads the signed-in user. A token whose account no longer exists clears the
// session and sends the browser to the auth page.
func (s *Server) pageUser(w http.ResponseWriter, r *http.Request) (*types.User, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		http.Redirect(w, r, middleware.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return nil, false
	}
	user, err := s.users.Get(r.Context(), userID)
	if err != nil {
		var notFound *users.ErrUserNotFound
		if errors.As(err, &notFound) {
			clearSessionCookie(w)
			http.Redirect(w, r, middleware.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return nil, false
		}
		s.renderError(w, r, nil, err)
		return nil, false
	}
	return user, true
}

func (s *Server) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if _, err := middleware.GetUserID(r); err == nil {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, web.PageAuth, web.AuthPage{
		Layout: web.Layout{Title: "Auth"},
		Next:   next,
	})
}

func (s *Server) handleAuthForm(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	switch action {
	case "login", "register", "guest":
	default:
		s.handleNotFound(w, r)
		return
	}

	next := safeNext(r.PostFormValue("next"))
	token, err := s.authHandler.SignIn(r, action)
	if err != nil {
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			s.logFailure(r, err)
		}
		s.render(w, status, web.PageAuth, web.AuthPage{
			Layout: web.Layout{Title: "Auth"},
			Next:   next,
			Error:  PublicMessage(err),
		})
		return
	}

	setSessionCookie(w, r, token, s.jwtService.Expiration())
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

func (s *Server) handleHomePage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pageUser(w, r)
	if !ok {
		return
	}
	list, err := s.resumes.List(r.Context(), user.ID.String())
	if err != nil {
		s.renderError(w, r, user, err)
		return
	}
	s.render(w, http.StatusOK, web.PageHome, web.HomePage{
		Layout:  web.Layout{Title: "Home", User: user},
		Resumes: list,
	})
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pageUser(w, r)
	if !ok {
		return
	}
	s.render(w, http.StatusOK, web.PageUpload, web.UploadPage{
		Layout:         web.Layout{Title: "Upload", User: user},
		MaxUploadBytes: s.cfg.MaxUploadBytes,
	})
}

// handleUploadForm is the no-script upload path: the analysis runs within the request and
// the browser is redirected to the result.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pageUser(w, r)
	if !ok {
		return
	}
	page := web.UploadPage{
		Layout:         web.Layout{Title: "Upload", User: user},
		MaxUploadBytes: s.cfg.MaxUploadBytes,
	}

	in, err := s.readUpload(w, r, user.ID)
	if err != nil {
		status, msg := uploadStatus(err)
		page.Status = msg
		s.render(w, status, web.PageUpload, page)
		return
	}
	page.CompanyName, page.JobTitle, page.JobDescription = in.CompanyName, in.JobTitle, in.JobDescription

	result, err := s.analyze(r.Context(), user.ID.String(), in, nil)
	if err != nil {
		s.logFailure(r, err)
		page.Status = PublicMessage(err)
		s.render(w, HTTPStatus(err), web.PageUpload, page)
		return
	}
	http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
}

func (s *Server) handleResumePage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pageUser(w, r)
	if !ok {
		return
	}
	resume, err := s.resumes.Get(r.Context(), user.ID.String(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, r, user, err)
		return
	}
	s.render(w, http.StatusOK, web.PageResume, web.ResumePage{
		Layout: web.Layout{Title: "Review", User: user},
		Resume: resume,
	})
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pageUser(w, r)
	if !ok {
		return
	}
	if err := s.resumes.Delete(r.Context(), user.ID.String(), chi.URLParam(r, "id")); err != nil {
		s.renderError(w, r, user, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleWipePage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pageUser(w, r)
	if !ok {
		return
	}
	files, err := s.resumes.Files(r.Context(), user.ID.String())
	if err != nil {
		s.renderError(w, r, user, err)
		return
	}
	s.render(w, http.StatusOK, web.PageWipe, web.WipePage{
		Layout: web.Layout{Title: "Wipe", User: user},
		Files:  files,
	})
}

func (s *Server) handleWipeForm(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pageUser(w, r)
	if !ok {
		return
	}
	ownerID := user.ID.String()
	page := web.WipePage{Layout: web.Layout{Title: "Wipe", User: user}}

	status := http.StatusOK
	result, err := s.resumes.Wipe(r.Context(), ownerID)
	switch {
	case err != nil && result == nil:
		s.renderError(w, r, user, err)
		return
	case err != nil:
		s.logFailure(r, err)
		status = http.StatusInternalServerError
		page.Message = "Some files could not be deleted. Try again."
	default:
		page.Message = "All app data was wiped."
	}

	files, err := s.resumes.Files(r.Context(), ownerID)
	if err != nil {
		s.renderError(w, r, user, err)
		return
	}
	page.Files = files
	s.render(w, status, web.PageWipe, page)
}

// handleNotFound answers JSON under /api and the error page elsewhere.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		errorResponse(w, http.StatusNotFound, "Not found")
		return
	}
	s.render(w, http.StatusNotFound, web.PageError, web.ErrorPage{
		Layout:  web.Layout{Title: "Not found"},
		Status:  http.StatusNotFound,
		Message: "The page you are looking for does not exist.",
	})
}
