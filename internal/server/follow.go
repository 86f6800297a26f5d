package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"yatube/internal/models"
	"yatube/internal/monitoring"
)

// handleProfileFollow is a no-op for one's own profile or an existing edge.
func (s *Server) handleProfileFollow(w http.ResponseWriter, r *http.Request, user *models.User) {
	username := mux.Vars(r)["username"]
	author, err := models.GetUserByUsername(r.Context(), s.DB, username)
	if err != nil {
		s.lookupError(w, r, err)
		return
	}
	result := "noop"
	if user.Username != author.Username {
		created, err := models.FollowAuthor(r.Context(), s.DB, user.ID, author.ID)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		if created {
			result = "created"
		}
	}
	monitoring.FollowActions.WithLabelValues("follow", result).Inc()
	http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
}

func (s *Server) handleProfileUnfollow(w http.ResponseWriter, r *http.Request, user *models.User) {
	username := mux.Vars(r)["username"]
	author, err := models.GetUserByUsername(r.Context(), s.DB, username)
	if err != nil {
		s.lookupError(w, r, err)
		return
	}
	removed, err := models.UnfollowAuthor(r.Context(), s.DB, user.ID, author.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	result := "noop"
	if removed {
		result = "deleted"
	}
	monitoring.FollowActions.WithLabelValues("unfollow", result).Inc()
	http.Redirect(w, r, profileURL(author.Username), http.StatusFound)
}
