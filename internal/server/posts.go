package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"yatube/internal/cache"
	"yatube/internal/feed"
	"yatube/internal/forms"
	"yatube/internal/models"
	"yatube/internal/monitoring"
)

// IndexFragmentKey is the cache slot of the home feed. It does not vary by
// page or user.
var IndexFragmentKey = cache.FragmentKey("index_page", 1)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	fragment, ok := s.Cache.Get(IndexFragmentKey)
	if ok {
		monitoring.FragmentCache.WithLabelValues("hit").Inc()
	} else {
		monitoring.FragmentCache.WithLabelValues("miss").Inc()
		page, err := feed.Compose(r.Context(), feed.Posts(s.DB, models.PostFilter{}), r.URL.Query().Get("page"), 0)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		fragment, err = s.renderFragment("index", "feed", map[string]any{"Page": page})
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.Cache.Set(IndexFragmentKey, fragment)
	}
	s.render(w, r, "index", map[string]any{"Feed": fragment})
}

func (s *Server) handleFollowIndex(w http.ResponseWriter, r *http.Request, user *models.User) {
	page, err := feed.Compose(r.Context(), feed.Posts(s.DB, models.PostFilter{FollowerID: user.ID}), r.URL.Query().Get("page"), 0)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, "follow", map[string]any{"Page": page})
}

func (s *Server) handleGroupPosts(w http.ResponseWriter, r *http.Request) {
	group, err := models.GetGroupBySlug(r.Context(), s.DB, mux.Vars(r)["slug"])
	if err != nil {
		s.lookupError(w, r, err)
		return
	}
	page, err := feed.Compose(r.Context(), feed.Posts(s.DB, models.PostFilter{GroupID: group.ID}), r.URL.Query().Get("page"), feed.GroupCap)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, "group", map[string]any{"Group": group, "Page": page})
}

func (s *Server) handleNewPost(w http.ResponseWriter, r *http.Request, user *models.User) {
	groups, err := models.ListGroups(r.Context(), s.DB)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "new", map[string]any{"Form": forms.NewPostForm(groups, nil)})

	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
		form := forms.ParsePost(r, groups)
		if !form.Valid() {
			s.render(w, r, "new", map[string]any{"Form": form})
			return
		}
		post := &models.Post{AuthorID: user.ID, GroupID: form.GroupID, Text: form.Text}
		if form.Image != nil {
			if post.Image, err = s.Media.Save(form.Image); err != nil {
				s.serverError(w, r, err)
				return
			}
		}
		if err := models.CreatePost(r.Context(), s.DB, post); err != nil {
			s.discardMedia(post.Image)
			s.serverError(w, r, err)
			return
		}
		monitoring.PostsCreated.Inc()
		slog.Info("Post created", "post_id", post.ID, "author", user.Username)
		http.Redirect(w, r, "/", http.StatusFound)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := models.GetUserByUsername(r.Context(), s.DB, mux.Vars(r)["username"])
	if err != nil {
		s.lookupError(w, r, err)
		return
	}
	page, err := feed.Compose(r.Context(), feed.Posts(s.DB, models.PostFilter{AuthorID: profile.ID}), r.URL.Query().Get("page"), 0)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	data := map[string]any{"Profile": profile, "Page": page}
	if user := currentUser(r); user != nil {
		following, err := models.IsFollowing(r.Context(), s.DB, user.ID, profile.ID)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		data["Following"] = following
		data["IsOwner"] = user.ID == profile.ID
	}
	s.render(w, r, "profile", data)
}

// loadPost resolves the {username} and {post_id} path segments. The post must
// belong to that user.
func (s *Server) loadPost(r *http.Request) (*models.User, *models.Post, error) {
	vars := mux.Vars(r)
	profile, err := models.GetUserByUsername(r.Context(), s.DB, vars["username"])
	if err != nil {
		return nil, nil, err
	}
	id, err := strconv.Atoi(vars["post_id"])
	if err != nil {
		return nil, nil, models.ErrNotFound
	}
	post, err := models.GetPost(r.Context(), s.DB, id)
	if err != nil {
		return nil, nil, err
	}
	if post.AuthorID != profile.ID {
		return nil, nil, models.ErrNotFound
	}
	return profile, post, nil
}

func (s *Server) handlePostView(w http.ResponseWriter, r *http.Request) {
	profile, post, err := s.loadPost(r)
	if err != nil {
		s.lookupError(w, r, err)
		return
	}
	count, err := models.CountPosts(r.Context(), s.DB, models.PostFilter{AuthorID: profile.ID})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	comments, err := models.ListComments(r.Context(), s.DB, post.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, "post", map[string]any{
		"Profile":     profile,
		"Post":        post,
		"PostCount":   count,
		"CommentForm": &forms.CommentForm{Errors: forms.Errors{}},
		"Comments":    comments,
	})
}

// handleAddComment never surfaces form errors: every outcome redirects back
// to the post.
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request, user *models.User) {
	_, post, err := s.loadPost(r)
	if err != nil {
		s.lookupError(w, r, err)
		return
	}
	if r.Method == http.MethodPost {
		form := forms.ParseComment(r)
		if form.Valid() {
			comment := &models.Comment{PostID: post.ID, AuthorID: user.ID, Text: form.Text}
			if err := models.CreateComment(r.Context(), s.DB, comment); err != nil {
				s.serverError(w, r, err)
				return
			}
			monitoring.CommentsCreated.Inc()
		}
	}
	http.Redirect(w, r, postURL(post.Author.Username, post.ID), http.StatusFound)
}

// handlePostEdit lets only the author change a post. Anyone else, and any
// invalid submission, is sent back to the post unchanged.
func (s *Server) handlePostEdit(w http.ResponseWriter, r *http.Request) {
	_, post, err := s.loadPost(r)
	if err != nil {
		s.lookupError(w, r, err)
		return
	}
	back := postURL(post.Author.Username, post.ID)

	user := currentUser(r)
	if user == nil || user.ID != post.AuthorID {
		http.Redirect(w, r, back, http.StatusFound)
		return
	}

	groups, err := models.ListGroups(r.Context(), s.DB)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	if r.Method != http.MethodPost {
		s.render(w, r, "new", map[string]any{"Form": forms.NewPostForm(groups, post), "Post": post})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	form := forms.ParsePost(r, groups)
	if form.Valid() {
		post.Text = form.Text
		post.GroupID = form.GroupID
		saved := ""
		switch {
		case form.Image != nil:
			if saved, err = s.Media.Save(form.Image); err != nil {
				s.serverError(w, r, err)
				return
			}
			post.Image = saved
		case form.ClearImage:
			post.Image = ""
		}
		if err := models.UpdatePost(r.Context(), s.DB, post); err != nil {
			s.discardMedia(saved)
			s.serverError(w, r, err)
			return
		}
		monitoring.PostsEdited.Inc()
	}
	http.Redirect(w, r, back, http.StatusFound)
}

// discardMedia removes an image saved for a write that did not commit.
func (s *Server) discardMedia(name string) {
	if name == "" {
		return
	}
	if err := s.Media.Remove(name); err != nil {
		slog.Warn("Orphaned media file", "file", name, "error", err)
	}
}
