package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateSlug      = errors.New("group slug already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

func uniqueViolation(err error, column string) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return false
	}
	return strings.Contains(sqliteErr.Error(), column)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Users

func CreateUser(ctx context.Context, db *sql.DB, email, username, passwordHash string) (int, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO users (email, username, password_hash) VALUES (?, ?, ?)`, email, username, passwordHash)
	if err != nil {
		if uniqueViolation(err, "users.email") {
			return 0, ErrDuplicateEmail
		}
		if uniqueViolation(err, "users.username") {
			return 0, ErrDuplicateUsername
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

const userColumns = `SELECT id, email, username, password_hash, created_at FROM users`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*User, error) {
	return scanUser(db.QueryRowContext(ctx, userColumns+` WHERE username = ?`, username))
}

func GetUserByID(ctx context.Context, db *sql.DB, id int) (*User, error) {
	return scanUser(db.QueryRowContext(ctx, userColumns+` WHERE id = ?`, id))
}

// Sessions

func CreateSession(ctx context.Context, db *sql.DB, userID int, sessionID string, expires time.Time) error {
	_, err := db.ExecContext(ctx, `INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`, sessionID, userID, expires.UTC())
	return err
}

func GetSession(ctx context.Context, db *sql.DB, id string) (*Session, error) {
	row := db.QueryRowContext(ctx, `SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?`, id)
	var s Session
	var revoked sql.NullTime
	if err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &revoked); err != nil {
		return nil, notFound(err)
	}
	if revoked.Valid {
		s.RevokedAt = &revoked.Time
	}
	return &s, nil
}

func RevokeSession(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, time.Now().UTC(), id)
	return err
}

// DeleteExpiredSessions removes sessions that expired or were revoked before now.
func DeleteExpiredSessions(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ? OR revoked_at IS NOT NULL`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Groups

func CreateGroup(ctx context.Context, db *sql.DB, g *Group) error {
	res, err := db.ExecContext(ctx, `INSERT INTO groups (title, slug, description) VALUES (?, ?, ?)`, g.Title, g.Slug, g.Description)
	if err != nil {
		if uniqueViolation(err, "groups.slug") {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = int(id)
	return nil
}

func GetGroupBySlug(ctx context.Context, db *sql.DB, slug string) (*Group, error) {
	row := db.QueryRowContext(ctx, `SELECT id, title, slug, description FROM groups WHERE slug = ?`, slug)
	var g Group
	if err := row.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func ListGroups(ctx context.Context, db *sql.DB) ([]Group, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, title, slug, description FROM groups ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Posts

const postColumns = `SELECT p.id, p.author_id, u.username, p.group_id, g.title, g.slug, p.text, p.image, p.created_at
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN groups g ON g.id = p.group_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	var groupID sql.NullInt64
	var groupTitle, groupSlug sql.NullString
	err := row.Scan(&p.ID, &p.AuthorID, &p.Author.Username, &groupID, &groupTitle, &groupSlug, &p.Text, &p.Image, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Author.ID = p.AuthorID
	if groupID.Valid {
		id := int(groupID.Int64)
		p.GroupID = &id
		p.Group = &Group{ID: id, Title: groupTitle.String, Slug: groupSlug.String}
	}
	return &p, nil
}

func (f PostFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.AuthorID != 0 {
		conds = append(conds, `p.author_id = ?`)
		args = append(args, f.AuthorID)
	}
	if f.GroupID != 0 {
		conds = append(conds, `p.group_id = ?`)
		args = append(args, f.GroupID)
	}
	if f.FollowerID != 0 {
		conds = append(conds, `p.author_id IN (SELECT author_id FROM follows WHERE user_id = ?)`)
		args = append(args, f.FollowerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func CreatePost(ctx context.Context, db *sql.DB, p *Post) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx, `INSERT INTO posts (author_id, group_id, text, image, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.AuthorID, p.GroupID, p.Text, p.Image, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = int(id)
	return nil
}

// UpdatePost writes the editable fields. Author and creation time never change.
func UpdatePost(ctx context.Context, db *sql.DB, p *Post) error {
	res, err := db.ExecContext(ctx, `UPDATE posts SET group_id = ?, text = ?, image = ? WHERE id = ?`, p.GroupID, p.Text, p.Image, p.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func GetPost(ctx context.Context, db *sql.DB, id int) (*Post, error) {
	p, err := scanPost(db.QueryRowContext(ctx, postColumns+` WHERE p.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func CountPosts(ctx context.Context, db *sql.DB, f PostFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// ListPosts returns posts newest first, limited to [offset, offset+limit).
func ListPosts(ctx context.Context, db *sql.DB, f PostFilter, limit, offset int) ([]Post, error) {
	where, args := f.where()
	args = append(args, limit, offset)
	rows, err := db.QueryContext(ctx, postColumns+where+` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// Comments

func CreateComment(ctx context.Context, db *sql.DB, c *Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx, `INSERT INTO comments (post_id, author_id, text, created_at) VALUES (?, ?, ?, ?)`,
		c.PostID, c.AuthorID, c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = int(id)
	return nil
}

// ListComments returns the comments of a post, newest first.
func ListComments(ctx context.Context, db *sql.DB, postID int) ([]Comment, error) {
	rows, err := db.QueryContext(ctx, `SELECT c.id, c.post_id, c.author_id, u.username, c.text, c.created_at
		FROM comments c JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ?
		ORDER BY c.created_at DESC, c.id DESC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cs []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Author.ID = c.AuthorID
		cs = append(cs, c)
	}
	return cs, rows.Err()
}

// Follows

// GetFollow returns the (userID, authorID) edge, or ErrNotFound.
func GetFollow(ctx context.Context, db *sql.DB, userID, authorID int) (*Follow, error) {
	var f Follow
	err := db.QueryRowContext(ctx, `SELECT id, user_id, author_id FROM follows WHERE user_id = ? AND author_id = ?`, userID, authorID).
		Scan(&f.ID, &f.UserID, &f.AuthorID)
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func IsFollowing(ctx context.Context, db *sql.DB, userID, authorID int) (bool, error) {
	_, err := GetFollow(ctx, db, userID, authorID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FollowAuthor creates the (userID, authorID) edge unless it already exists.
// It reports whether a new edge was written.
func FollowAuthor(ctx context.Context, db *sql.DB, userID, authorID int) (bool, error) {
	exists, err := IsFollowing(ctx, db, userID, authorID)
	if err != nil || exists {
		return false, err
	}
	res, err := db.ExecContext(ctx, `INSERT INTO follows (user_id, author_id) VALUES (?, ?) ON CONFLICT (user_id, author_id) DO NOTHING`, userID, authorID)
	if err != nil {
		return false, fmt.Errorf("insert follow: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UnfollowAuthor deletes the edge if present. A missing edge is not an error.
func UnfollowAuthor(ctx context.Context, db *sql.DB, userID, authorID int) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM follows WHERE user_id = ? AND author_id = ?`, userID, authorID)
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func CountFollows(ctx context.Context, db *sql.DB, userID int) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}
