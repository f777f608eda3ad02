package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/HoloHeri/internal/auth"
	"github.com/dharsanguruparan/HoloHeri/internal/domain"
	"github.com/dharsanguruparan/HoloHeri/internal/site"
	"github.com/dharsanguruparan/HoloHeri/internal/upload"
)

const tokenCookie = "token"

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.sites.List(r.Context(), site.ListQuery{
		Page:  q.Get("page"),
		Limit: q.Get("limit"),
		Tag:   q.Get("tag"),
		Query: q.Get("q"),
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	rec, err := s.sites.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	form, err := s.intake.Parse(w, r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := s.intake.CheckRequired(form); err != nil {
		s.intake.Discard(form)
		s.handleError(w, r, err)
		return
	}
	rec, err := s.sites.Create(r.Context(), inputFrom(form))
	if err != nil {
		// The record was not stored, so its files would be orphaned.
		s.intake.Discard(form)
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Site uploaded locally",
		"site":    rec,
	})
}

func (s *Server) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	form, err := s.intake.Parse(w, r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	rec, err := s.sites.Update(r.Context(), chi.URLParam(r, "id"), inputFrom(form))
	if err != nil {
		s.intake.Discard(form)
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	id, err := s.sites.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Deleted successfully",
		"id":      id,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err == nil {
			req.Username = r.PostForm.Get("username")
			req.Password = r.PostForm.Get("password")
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondLoginError(w, r, &domain.ValidationError{Message: "Please provide both username and password"})
		return
	}

	res, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.respondLoginError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(s.cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   strings.HasPrefix(s.cfg.APIBaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   res.Token,
		"user":    map[string]string{"username": res.Username},
	})
}

// respondLoginError adds the success flag the login client expects.
func (s *Server) respondLoginError(w http.ResponseWriter, r *http.Request, err error) {
	status := domain.StatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Errorw("login failed", "error", err, "path", r.URL.Path)
		message = "Internal Server Error"
	}
	respondJSON(w, status, map[string]any{"success": false, "message": message})
}

func inputFrom(form *upload.Form) site.Input {
	return site.Input{Values: form.Values, Uploads: form.StoredNames()}
}
