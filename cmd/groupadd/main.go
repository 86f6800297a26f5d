// Command groupadd creates a post group, or lists existing groups with -list.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"yatube/internal/config"
	"yatube/internal/db"
	"yatube/internal/logging"
	"yatube/internal/models"
)

func main() {
	logging.Setup()
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DBPath, "path to the SQLite database")
	title := flag.String("title", "", "group title")
	slug := flag.String("slug", "", "unique group slug used in /group/<slug>/")
	description := flag.String("description", "", "group description")
	list := flag.Bool("list", false, "list groups and exit")
	flag.Parse()

	database, err := db.Open(*dbPath)
	if err != nil {
		slog.Error("Failed to open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer database.Close()

	ctx := context.Background()
	if *list {
		groups, err := models.ListGroups(ctx, database)
		if err != nil {
			slog.Error("Failed to list groups", "error", err)
			os.Exit(1)
		}
		for _, g := range groups {
			fmt.Printf("%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
		}
		return
	}

	if *title == "" || *slug == "" {
		flag.Usage()
		os.Exit(2)
	}
	g := &models.Group{Title: *title, Slug: *slug, Description: *description}
	if err := models.CreateGroup(ctx, database, g); err != nil {
		slog.Error("Failed to create group", "slug", *slug, "error", err)
		os.Exit(1)
	}
	slog.Info("Group created", "id", g.ID, "slug", g.Slug)
}
