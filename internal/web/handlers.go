package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/models"
	"github.com/starford/gebo/internal/snippetservice"
	"github.com/starford/gebo/internal/userservice"
)

// Handler holds the web page handlers.
type Handler struct {
	snippets    *snippetservice.Service
	users       *userservice.Service
	sessions    *sessionManager
	render      *renderer
	authEnabled bool
}

// NewHandler creates a web handler. users may be nil when the account
// subsystem is not wired; auth must then be disabled.
func NewHandler(snippets *snippetservice.Service, users *userservice.Service, sessionSecret string, authEnabled bool) (*Handler, error) {
	rn, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Handler{
		snippets:    snippets,
		users:       users,
		sessions:    newSessionManager(sessionSecret),
		render:      rn,
		authEnabled: authEnabled,
	}, nil
}

// newPage builds the shared template data: flashes, login state, title.
func (h *Handler) newPage(w http.ResponseWriter, r *http.Request, title string) page {
	p := page{
		Title:       title,
		Flashes:     h.sessions.PopFlashes(w, r),
		AuthEnabled: h.authEnabled,
	}
	if h.users != nil {
		if id, ok := h.sessions.UserID(r); ok {
			if u, err := h.users.Get(r.Context(), id); err == nil {
				p.User = u
			}
		}
	}
	return p
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(w, r, "Not Found")
	h.render.render(w, http.StatusNotFound, "error", p)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	p := h.newPage(w, r, "Something went wrong")
	h.render.render(w, http.StatusInternalServerError, "error", p)
}

func snippetID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// Index handles GET /: the most recent snippets.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	snippets, err := h.snippets.ListRecent(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	p := h.newPage(w, r, "Snippets")
	p.Snippets = lo.Map(snippets, func(s models.Snippet, _ int) snippetView {
		return newSnippetView(s)
	})
	h.render.render(w, http.StatusOK, "index", p)
}

// Results handles GET /snippet/: search results for ?q=, or the recent list
// when no query is given.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	snippets, err := h.snippets.Search(r.Context(), query)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	p := h.newPage(w, r, "Snippets")
	p.Query = query
	p.Snippets = lo.Map(snippets, func(s models.Snippet, _ int) snippetView {
		return newSnippetView(s)
	})
	if query == "" {
		h.render.render(w, http.StatusOK, "index", p)
		return
	}
	h.render.render(w, http.StatusOK, "results", p)
}

// SearchSubmit handles POST /search: turns the search form into the
// canonical GET /snippet/?q= URL.
func (h *Handler) SearchSubmit(w http.ResponseWriter, r *http.Request) {
	query := r.PostFormValue("query")
	if query == "" {
		http.Redirect(w, r, "/snippet/", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/snippet/?q="+url.QueryEscape(query), http.StatusFound)
}

// NewSnippet handles GET and POST /snippet/new.
func (h *Handler) NewSnippet(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(w, r, "New Snippet")
	if r.Method == http.MethodGet {
		p.Form = map[string]string{}
		h.render.render(w, http.StatusOK, "edit_snippet", p)
		return
	}

	title := r.PostFormValue("title")
	text := r.PostFormValue("text")
	sn, err := h.snippets.Create(r.Context(), title, text)
	if err != nil {
		if apperr.IsValidation(err) {
			p.Form = map[string]string{"title": title, "text": text}
			p.Errors = apperr.FieldErrors(err)
			h.render.render(w, http.StatusOK, "edit_snippet", p)
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.sessions.AddFlash(w, r, fmt.Sprintf("Created Snippet '%s'", sn.Title), "alert-success")
	http.Redirect(w, r, fmt.Sprintf("/snippet/%d", sn.ID), http.StatusFound)
}

// GetSnippet handles GET /snippet/{id}.
func (h *Handler) GetSnippet(w http.ResponseWriter, r *http.Request) {
	id, err := snippetID(r)
	if err != nil {
		h.notFound(w, r)
		return
	}
	sn, err := h.snippets.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			h.notFound(w, r)
		} else {
			h.serverError(w, r, err)
		}
		return
	}
	p := h.newPage(w, r, sn.Title)
	v := newSnippetView(*sn)
	p.Snippet = &v
	h.render.render(w, http.StatusOK, "snippet", p)
}

// EditSnippet handles GET and POST /snippet/{id}/edit.
func (h *Handler) EditSnippet(w http.ResponseWriter, r *http.Request) {
	id, err := snippetID(r)
	if err != nil {
		h.notFound(w, r)
		return
	}
	sn, err := h.snippets.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			h.notFound(w, r)
		} else {
			h.serverError(w, r, err)
		}
		return
	}

	p := h.newPage(w, r, "Edit Snippet")
	if r.Method == http.MethodGet {
		p.Form = map[string]string{"title": sn.Title, "text": sn.Text}
		v := newSnippetView(*sn)
		p.Snippet = &v
		h.render.render(w, http.StatusOK, "edit_snippet", p)
		return
	}

	title := r.PostFormValue("title")
	text := r.PostFormValue("text")
	updated, err := h.snippets.Update(r.Context(), id, title, text)
	if err != nil {
		if apperr.IsValidation(err) {
			p.Form = map[string]string{"title": title, "text": text}
			p.Errors = apperr.FieldErrors(err)
			v := newSnippetView(*sn)
			p.Snippet = &v
			h.render.render(w, http.StatusOK, "edit_snippet", p)
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.sessions.AddFlash(w, r, fmt.Sprintf("Snippet '%s' Updated", updated.Title), "alert-success")
	http.Redirect(w, r, fmt.Sprintf("/snippet/%d", updated.ID), http.StatusFound)
}

// DeleteSnippet handles GET and POST /snippet/{id}/delete: confirmation page,
// then the hard delete.
func (h *Handler) DeleteSnippet(w http.ResponseWriter, r *http.Request) {
	id, err := snippetID(r)
	if err != nil {
		h.notFound(w, r)
		return
	}
	sn, err := h.snippets.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			h.notFound(w, r)
		} else {
			h.serverError(w, r, err)
		}
		return
	}

	if r.Method == http.MethodGet {
		p := h.newPage(w, r, "Delete Snippet")
		p.Question = fmt.Sprintf("Are you sure you want to delete Snippet '%s'?", sn.Title)
		v := newSnippetView(*sn)
		p.Snippet = &v
		h.render.render(w, http.StatusOK, "confirm", p)
		return
	}

	if err := h.snippets.Delete(r.Context(), id); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.sessions.AddFlash(w, r, fmt.Sprintf("Snippet '%s' deleted", sn.Title), "alert-success")
	http.Redirect(w, r, "/", http.StatusFound)
}

// Preview handles POST /snippet/render: Markdown preview for the editor.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"title": req.Title,
		"html":  string(RenderMarkdown(req.Text)),
	})
}

// Login handles GET and POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(w, r, "Login")
	if r.Method == http.MethodGet {
		p.Form = map[string]string{"next": r.URL.Query().Get("next")}
		h.render.render(w, http.StatusOK, "login", p)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	u, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			p.Flashes = append(p.Flashes, Flash{Message: "Invalid Username or Password", Class: "alert-danger"})
			p.Form = map[string]string{"username": username, "next": r.PostFormValue("next")}
			h.render.render(w, http.StatusOK, "login", p)
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.sessions.SetUserID(w, r, u.ID)
	h.sessions.AddFlash(w, r, fmt.Sprintf("Welcome back %s!", u.Username), "alert-success")
	http.Redirect(w, r, safeNext(r.PostFormValue("next")), http.StatusFound)
}

// Logout handles GET /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearUser(w, r)
	h.sessions.AddFlash(w, r, "You have been logged out", "alert-success")
	http.Redirect(w, r, "/", http.StatusFound)
}

// NewUser handles GET and POST /user/new.
func (h *Handler) NewUser(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(w, r, "New User")
	if r.Method == http.MethodGet {
		p.Form = map[string]string{}
		h.render.render(w, http.StatusOK, "add_user", p)
		return
	}

	username := r.PostFormValue("username")
	u, err := h.users.Register(r.Context(), username, r.PostFormValue("password"), r.PostFormValue("confirm"))
	if err != nil {
		if apperr.IsValidation(err) {
			p.Form = map[string]string{"username": username}
			p.Errors = apperr.FieldErrors(err)
			h.render.render(w, http.StatusOK, "add_user", p)
			return
		}
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/user/%d", u.ID), http.StatusFound)
}

// GetUser handles GET /user/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.notFound(w, r)
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			h.notFound(w, r)
		} else {
			h.serverError(w, r, err)
		}
		return
	}
	p := h.newPage(w, r, u.Username)
	p.ShowUser = u
	h.render.render(w, http.StatusOK, "user", p)
}

// requireLogin gates mutating pages behind a session when auth is enabled.
func (h *Handler) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authEnabled {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := h.sessions.UserID(r); !ok {
			h.sessions.AddFlash(w, r, "Please login", "alert-warning")
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// safeNext only allows same-site relative redirect targets.
func safeNext(next string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && next[1] == '/') {
		return "/"
	}
	return next
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}
