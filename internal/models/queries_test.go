package models_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"yatube/internal/db"
	"yatube/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func mustUser(t *testing.T, database *sql.DB, username string) int {
	t.Helper()
	id, err := models.CreateUser(context.Background(), database, username+"@example.com", username, "hash")
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return id
}

func TestCreateUserDuplicates(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	mustUser(t, database, "alice")

	if _, err := models.CreateUser(ctx, database, "other@example.com", "alice", "hash"); !errors.Is(err, models.ErrDuplicateUsername) {
		t.Errorf("duplicate username: got %v", err)
	}
	if _, err := models.CreateUser(ctx, database, "alice@example.com", "alice2", "hash"); !errors.Is(err, models.ErrDuplicateEmail) {
		t.Errorf("duplicate email: got %v", err)
	}
	if _, err := models.GetUserByUsername(ctx, database, "nobody"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing user: got %v", err)
	}
}

func TestPostListing(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice")
	bob := mustUser(t, database, "bob")

	group := &models.Group{Title: "ping-echo", Slug: "ping-group", Description: "Ping"}
	if err := models.CreateGroup(ctx, database, group); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := models.CreateGroup(ctx, database, &models.Group{Title: "dup", Slug: "ping-group"}); !errors.Is(err, models.ErrDuplicateSlug) {
		t.Errorf("duplicate slug: got %v", err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		p := &models.Post{AuthorID: alice, Text: fmt.Sprintf("alice %d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if i%2 == 0 {
			p.GroupID = &group.ID
		}
		if err := models.CreatePost(ctx, database, p); err != nil {
			t.Fatalf("CreatePost: %v", err)
		}
	}
	if err := models.CreatePost(ctx, database, &models.Post{AuthorID: bob, Text: "bob 0", CreatedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	t.Run("global feed newest first", func(t *testing.T) {
		posts, err := models.ListPosts(ctx, database, models.PostFilter{}, 10, 0)
		if err != nil {
			t.Fatalf("ListPosts: %v", err)
		}
		if len(posts) != 6 {
			t.Fatalf("got %d posts, want 6", len(posts))
		}
		if posts[0].Text != "bob 0" || posts[1].Text != "alice 4" || posts[5].Text != "alice 0" {
			t.Errorf("unexpected order: %q, %q ... %q", posts[0].Text, posts[1].Text, posts[5].Text)
		}
		if posts[0].Author.Username != "bob" {
			t.Errorf("author not joined: %+v", posts[0].Author)
		}
	})

	t.Run("filters", func(t *testing.T) {
		n, err := models.CountPosts(ctx, database, models.PostFilter{AuthorID: alice})
		if err != nil || n != 5 {
			t.Errorf("author count = %d, %v", n, err)
		}
		n, err = models.CountPosts(ctx, database, models.PostFilter{GroupID: group.ID})
		if err != nil || n != 3 {
			t.Errorf("group count = %d, %v", n, err)
		}
		posts, err := models.ListPosts(ctx, database, models.PostFilter{GroupID: group.ID}, 10, 1)
		if err != nil || len(posts) != 2 {
			t.Fatalf("group page with offset = %d posts, %v", len(posts), err)
		}
		if posts[0].Group == nil || posts[0].Group.Slug != "ping-group" {
			t.Errorf("group not joined: %+v", posts[0].Group)
		}
	})

	t.Run("update keeps author", func(t *testing.T) {
		posts, _ := models.ListPosts(ctx, database, models.PostFilter{AuthorID: bob}, 1, 0)
		p := posts[0]
		p.Text = "bob edited"
		p.AuthorID = alice
		if err := models.UpdatePost(ctx, database, &p); err != nil {
			t.Fatalf("UpdatePost: %v", err)
		}
		got, err := models.GetPost(ctx, database, p.ID)
		if err != nil {
			t.Fatalf("GetPost: %v", err)
		}
		if got.Text != "bob edited" || got.AuthorID != bob {
			t.Errorf("after update: text %q author %d", got.Text, got.AuthorID)
		}
		if err := models.UpdatePost(ctx, database, &models.Post{ID: 9999, Text: "x"}); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("update missing post: %v", err)
		}
	})
}

func TestFollowIdempotent(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice")
	bob := mustUser(t, database, "bob")

	created, err := models.FollowAuthor(ctx, database, alice, bob)
	if err != nil || !created {
		t.Fatalf("first follow: created=%v err=%v", created, err)
	}
	created, err = models.FollowAuthor(ctx, database, alice, bob)
	if err != nil || created {
		t.Fatalf("second follow: created=%v err=%v", created, err)
	}
	if n, _ := models.CountFollows(ctx, database, alice); n != 1 {
		t.Errorf("follow edges = %d, want 1", n)
	}
	edge, err := models.GetFollow(ctx, database, alice, bob)
	if err != nil || edge.UserID != alice || edge.AuthorID != bob {
		t.Errorf("GetFollow = %+v, %v", edge, err)
	}
	if _, err := models.GetFollow(ctx, database, bob, alice); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("reverse edge: got %v", err)
	}

	removed, err := models.UnfollowAuthor(ctx, database, alice, bob)
	if err != nil || !removed {
		t.Fatalf("unfollow: removed=%v err=%v", removed, err)
	}
	removed, err = models.UnfollowAuthor(ctx, database, alice, bob)
	if err != nil || removed {
		t.Fatalf("unfollow missing edge: removed=%v err=%v", removed, err)
	}
	if following, _ := models.IsFollowing(ctx, database, alice, bob); following {
		t.Error("edge should be gone")
	}
}

func TestFollowFeed(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice")
	bob := mustUser(t, database, "bob")
	carol := mustUser(t, database, "carol")

	models.CreatePost(ctx, database, &models.Post{AuthorID: bob, Text: "from bob"})
	models.CreatePost(ctx, database, &models.Post{AuthorID: carol, Text: "from carol"})
	models.FollowAuthor(ctx, database, alice, bob)

	posts, err := models.ListPosts(ctx, database, models.PostFilter{FollowerID: alice}, 10, 0)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 1 || posts[0].Text != "from bob" {
		t.Errorf("follow feed = %+v", posts)
	}
	if n, _ := models.CountPosts(ctx, database, models.PostFilter{FollowerID: carol}); n != 0 {
		t.Errorf("carol follows nobody, got %d posts", n)
	}
}

func TestCommentsNewestFirst(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice")
	post := &models.Post{AuthorID: alice, Text: "post"}
	if err := models.CreatePost(ctx, database, post); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		c := &models.Comment{PostID: post.ID, AuthorID: alice, Text: fmt.Sprintf("c%d", i), CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := models.CreateComment(ctx, database, c); err != nil {
			t.Fatalf("CreateComment: %v", err)
		}
	}
	comments, err := models.ListComments(ctx, database, post.ID)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 3 || comments[0].Text != "c2" || comments[2].Text != "c0" {
		t.Errorf("comments = %+v", comments)
	}
	if comments[0].Author.Username != "alice" {
		t.Errorf("comment author not joined: %+v", comments[0].Author)
	}
}

func TestSessions(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	alice := mustUser(t, database, "alice")

	if err := models.CreateSession(ctx, database, alice, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := models.CreateSession(ctx, database, alice, "old", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sess, err := models.GetSession(ctx, database, "live")
	if err != nil || sess.UserID != alice || sess.RevokedAt != nil {
		t.Fatalf("GetSession = %+v, %v", sess, err)
	}

	n, err := models.DeleteExpiredSessions(ctx, database, time.Now())
	if err != nil || n != 1 {
		t.Errorf("DeleteExpiredSessions = %d, %v", n, err)
	}

	if err := models.RevokeSession(ctx, database, "live"); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	sess, err = models.GetSession(ctx, database, "live")
	if err != nil || sess.RevokedAt == nil {
		t.Errorf("revoked session = %+v, %v", sess, err)
	}
	if _, err := models.GetSession(ctx, database, "old"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expired session should be deleted, got %v", err)
	}
}
