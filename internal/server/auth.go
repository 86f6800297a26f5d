package server

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"yatube/internal/forms"
	"yatube/internal/models"
	"yatube/internal/monitoring"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

const minPasswordLength = 8

// reservedUsernames collide with top-level routes.
var reservedUsernames = map[string]bool{
	"auth": true, "follow": true, "group": true, "new": true,
	"static": true, "media": true, "metrics": true,
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "signup", map[string]any{"Errors": forms.Errors{}, "Username": "", "Email": ""})

	case http.MethodPost:
		username := r.FormValue("username")
		email := r.FormValue("email")
		password := r.FormValue("password")

		errs := forms.Errors{}
		if !usernamePattern.MatchString(username) || reservedUsernames[strings.ToLower(username)] {
			errs.Add("username", "Введите правильное имя пользователя.")
		}
		if _, err := mail.ParseAddress(email); err != nil {
			errs.Add("email", "Введите правильный адрес электронной почты.")
		}
		if len(password) < minPasswordLength {
			errs.Add("password", "Пароль слишком короткий.")
		}
		data := map[string]any{"Errors": errs, "Username": username, "Email": email}
		if len(errs) > 0 {
			s.render(w, r, "signup", data)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		_, err = models.CreateUser(r.Context(), s.DB, email, username, string(hash))
		switch {
		case errors.Is(err, models.ErrDuplicateUsername):
			errs.Add("username", "Пользователь с таким именем уже существует.")
		case errors.Is(err, models.ErrDuplicateEmail):
			errs.Add("email", "Этот адрес электронной почты уже используется.")
		case err != nil:
			s.serverError(w, r, err)
			return
		}
		if len(errs) > 0 {
			s.render(w, r, "signup", data)
			return
		}
		slog.Info("User registered", "username", username)
		http.Redirect(w, r, loginPath, http.StatusFound)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "login", map[string]any{"Next": r.URL.Query().Get("next"), "Username": ""})

	case http.MethodPost:
		username := r.FormValue("username")
		next := r.FormValue("next")

		user, err := s.authenticateCredentials(r, username, r.FormValue("password"))
		if err != nil {
			if !errors.Is(err, models.ErrInvalidCredentials) {
				s.serverError(w, r, err)
				return
			}
			s.render(w, r, "login", map[string]any{
				"Next":     next,
				"Username": username,
				"Error":    "Пожалуйста, введите правильные имя пользователя и пароль.",
			})
			return
		}

		if n, err := models.DeleteExpiredSessions(r.Context(), s.DB, time.Now()); err != nil {
			slog.Warn("Session cleanup failed", "error", err)
		} else if n > 0 {
			slog.Debug("Expired sessions removed", "count", n)
		}

		sid := uuid.NewString()
		expires := time.Now().Add(s.sessionTTL)
		if err := models.CreateSession(r.Context(), s.DB, user.ID, sid, expires); err != nil {
			s.serverError(w, r, err)
			return
		}
		encoded, err := s.cookies.Encode(s.CookieName, sid)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     s.CookieName,
			Value:    encoded,
			Path:     "/",
			Expires:  expires,
			HttpOnly: true,
			Secure:   s.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, safeNext(next), http.StatusFound)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) authenticateCredentials(r *http.Request, username, password string) (*models.User, error) {
	user, err := models.GetUserByUsername(r.Context(), s.DB, username)
	if errors.Is(err, models.ErrNotFound) {
		monitoring.LoginFailure.WithLabelValues("unknown_user").Inc()
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		monitoring.LoginFailure.WithLabelValues("wrong_password").Inc()
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if cookie, err := r.Cookie(s.CookieName); err == nil {
		var sid string
		if s.cookies.Decode(s.CookieName, cookie.Value, &sid) == nil {
			if err := models.RevokeSession(r.Context(), s.DB, sid); err != nil {
				slog.Warn("Session revoke failed", "error", err)
			}
		}
		http.SetCookie(w, &http.Cookie{Name: s.CookieName, Path: "/", MaxAge: -1})
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
