package server

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/media"
	"yatube/internal/models"
	"yatube/internal/monitoring"
	"yatube/web"
)

const loginPath = "/auth/login/"

type Server struct {
	DB    *sql.DB
	Cache *cache.Fragments
	Media *media.Store

	tmpl map[string]*template.Template

	CookieName   string
	cookies      *securecookie.SecureCookie
	sessionTTL   time.Duration
	cookieSecure bool
	maxUpload    int64

	handler http.Handler
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Local().Format("02.01.2006 15:04") },
}

// New parses the page templates and wires the routes. Each page is parsed
// together with layout.html and the shared _*.html partials.
func New(db *sql.DB, cfg *config.Config) (*Server, error) {
	templates, err := parseTemplates(web.Templates())
	if err != nil {
		return nil, err
	}
	store, err := media.New(cfg.MediaRoot)
	if err != nil {
		return nil, err
	}
	s := &Server{
		DB:           db,
		Cache:        cache.New(cfg.CacheTTL),
		Media:        store,
		tmpl:         templates,
		CookieName:   "session_id",
		cookies:      securecookie.New([]byte(cfg.SessionKey), nil),
		sessionTTL:   cfg.SessionTTL,
		cookieSecure: cfg.CookieSecure,
		maxUpload:    cfg.MaxUploadBytes,
	}
	s.cookies.MaxAge(int(cfg.SessionTTL.Seconds()))
	s.handler = s.recoverPanics(s.logRequests(s.authenticate(s.routes())))
	return s, nil
}

func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	pages, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, err
	}
	templates := map[string]*template.Template{}
	for _, page := range pages {
		if page == "layout.html" || strings.HasPrefix(page, "_") {
			continue
		}
		t, err := template.New(page).Funcs(templateFuncs).ParseFS(fsys, "layout.html", "_*.html", page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		templates[strings.TrimSuffix(page, ".html")] = t
	}
	return templates, nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.Use(monitoring.InstrumentHandler)

	r.HandleFunc("/", s.handleIndex)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))
	r.PathPrefix("/media/").Handler(http.StripPrefix("/media/", s.Media.Handler()))
	r.Handle("/metrics", monitoring.Handler())

	r.HandleFunc("/auth/signup/", s.handleSignup)
	r.HandleFunc("/auth/login/", s.handleLogin)
	r.HandleFunc("/auth/logout/", s.handleLogout)

	r.HandleFunc("/follow/", s.requireAuth(s.handleFollowIndex))
	r.HandleFunc("/group/{slug}/", s.handleGroupPosts)
	r.HandleFunc("/new/", s.requireAuth(s.handleNewPost))

	r.HandleFunc("/{username}/", s.handleProfile)
	r.HandleFunc("/{username}/follow/", s.requireAuth(s.handleProfileFollow))
	r.HandleFunc("/{username}/unfollow/", s.requireAuth(s.handleProfileUnfollow))
	r.HandleFunc("/{username}/{post_id:[0-9]+}/", s.handlePostView)
	r.HandleFunc("/{username}/{post_id:[0-9]+}/comment/", s.requireAuth(s.handleAddComment))
	r.HandleFunc("/{username}/{post_id:[0-9]+}/edit/", s.handlePostEdit)
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// render writes page name with HTTP 200. The current user is always
// available to templates as .User.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	s.renderStatus(w, r, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	t, ok := s.tmpl[name]
	if !ok {
		slog.Error("Template not found", "template", name)
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["User"] = currentUser(r)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("Render failed", "template", name, "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderFragment executes one named block of a page on its own.
func (s *Server) renderFragment(page, block string, data any) (template.HTML, error) {
	t, ok := s.tmpl[page]
	if !ok {
		return "", fmt.Errorf("template %s not found", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		return "", fmt.Errorf("render %s/%s: %w", page, block, err)
	}
	return template.HTML(buf.String()), nil
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderStatus(w, r, http.StatusNotFound, "404", map[string]any{"Path": r.URL.Path})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	s.renderStatus(w, r, http.StatusInternalServerError, "500", nil)
}

// lookupError renders 404 for missing records and 500 for anything else.
func (s *Server) lookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrNotFound) {
		s.handleNotFound(w, r)
		return
	}
	s.serverError(w, r, err)
}

func profileURL(username string) string {
	return "/" + username + "/"
}

func postURL(username string, postID int) string {
	return path.Join("/", username, fmt.Sprint(postID)) + "/"
}
