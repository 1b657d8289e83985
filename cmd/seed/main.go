// Command seed loads a JSON catalog of authors and books into the database so
// a fresh install has something on its shelves.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"library-server/internal/config"
	"library-server/internal/domain"
	"library-server/internal/repository/sqlite"
)

type catalog struct {
	Authors []struct {
		Name string `json:"name"`
		Bio  string `json:"bio"`
	} `json:"authors"`
	Books []struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	} `json:"books"`
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	path := flag.String("catalog", "seed/catalog.json", "path to the catalog JSON file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		logger.Fatalf("read catalog: %v", err)
	}
	var cat catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		logger.Fatalf("parse catalog: %v", err)
	}

	ctx := context.Background()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	bookRepo := sqlite.NewBookRepository(db)
	authorRepo := sqlite.NewAuthorRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := bookRepo.Init(ctx); err != nil {
		logger.Fatalf("init book repository: %v", err)
	}
	if err := authorRepo.Init(ctx); err != nil {
		logger.Fatalf("init author repository: %v", err)
	}

	for _, a := range cat.Authors {
		author := &domain.Author{Name: a.Name, Bio: a.Bio}
		if _, err := authorRepo.Create(ctx, author); err != nil {
			logger.Warnf("author %q: %v", a.Name, err)
			continue
		}
		logger.Infof("author %q -> %d", author.Name, author.ID)
	}

	for _, b := range cat.Books {
		book := &domain.Book{Title: b.Title, Author: b.Author}
		if _, err := bookRepo.Create(ctx, book); err != nil {
			logger.Warnf("book %q: %v", b.Title, err)
			continue
		}
		logger.Infof("book %q by %s -> %d", book.Title, book.Author, book.ID)
	}

	logger.Infof("seeded %d authors, %d books", len(cat.Authors), len(cat.Books))
}
