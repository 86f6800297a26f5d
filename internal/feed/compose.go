package feed

import (
	"context"
	"database/sql"

	"yatube/internal/models"
)

// Source is a filtered post listing, newest first.
type Source interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, limit, offset int) ([]models.Post, error)
}

// Page is one rendered slice of a feed.
type Page struct {
	Window
	Posts []models.Post
}

// Compose counts src, truncates it to limit posts when limit > 0, and loads
// the page named by pageParam.
func Compose(ctx context.Context, src Source, pageParam string, limit int) (*Page, error) {
	total, err := src.Count(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		total = Capped(total, limit)
	}
	w := Paginate(total, PerPage, pageParam)
	page := &Page{Window: w}
	if w.Limit == 0 {
		return page, nil
	}
	page.Posts, err = src.List(ctx, w.Limit, w.Offset)
	if err != nil {
		return nil, err
	}
	return page, nil
}

type storeSource struct {
	db     *sql.DB
	filter models.PostFilter
}

// Posts is the Source of every post matching filter.
func Posts(db *sql.DB, filter models.PostFilter) Source {
	return storeSource{db: db, filter: filter}
}

func (s storeSource) Count(ctx context.Context) (int, error) {
	return models.CountPosts(ctx, s.db, s.filter)
}

func (s storeSource) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return models.ListPosts(ctx, s.db, s.filter, limit, offset)
}
