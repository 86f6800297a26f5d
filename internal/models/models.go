package models

import "time"

type User struct {
	ID           int
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Session struct {
	ID        string
	UserID    int
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

type Group struct {
	ID          int
	Title       string
	Slug        string
	Description string
}

// Post is a feed entry. Author and Group are filled by the list and get queries.
type Post struct {
	ID        int
	AuthorID  int
	Author    User
	GroupID   *int
	Group     *Group
	Text      string
	Image     string
	CreatedAt time.Time
}

type Comment struct {
	ID        int
	PostID    int
	AuthorID  int
	Author    User
	Text      string
	CreatedAt time.Time
}

// Follow is a directed edge: UserID receives AuthorID's posts in the follow feed.
type Follow struct {
	ID       int
	UserID   int
	AuthorID int
}

// PostFilter narrows a post listing. Zero values mean "no restriction".
type PostFilter struct {
	AuthorID   int
	GroupID    int
	FollowerID int
}
