// Command seed populates the catalog with sample books for local
// development.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pagebound/pagebound/internal"
	"github.com/pagebound/pagebound/internal/domain"
	"github.com/pagebound/pagebound/internal/mongo"
)

var sampleBooks = []domain.Book{
	{
		Title:       "The Go Programming Language",
		Author:      "Alan A. A. Donovan, Brian W. Kernighan",
		ISBN:        "9780134190440",
		Description: "The authoritative resource for writing clear and idiomatic Go.",
		PriceCents:  4499,
		Category:    "programming",
		Stock:       25,
		Active:      true,
	},
	{
		Title:       "Designing Data-Intensive Applications",
		Author:      "Martin Kleppmann",
		ISBN:        "9781449373320",
		Description: "The big ideas behind reliable, scalable, and maintainable systems.",
		PriceCents:  5299,
		Category:    "programming",
		Stock:       18,
		Active:      true,
	},
	{
		Title:       "Project Hail Mary",
		Author:      "Andy Weir",
		ISBN:        "9780593135204",
		Description: "A lone astronaut must save the earth from disaster.",
		PriceCents:  1799,
		Category:    "science-fiction",
		Stock:       40,
		Active:      true,
	},
	{
		Title:       "The Left Hand of Darkness",
		Author:      "Ursula K. Le Guin",
		ISBN:        "9780441478125",
		Description: "A groundbreaking work of science fiction.",
		PriceCents:  1699,
		Category:    "science-fiction",
		Stock:       7,
		Active:      true,
	},
	{
		Title:       "Piranesi",
		Author:      "Susanna Clarke",
		ISBN:        "9781635575637",
		Description: "The house is vast. The house is kind. The world is not what it seems.",
		PriceCents:  1599,
		Category:    "fantasy",
		Stock:       0,
		Active:      true,
	},
	{
		Title:       "Out of Print Anthology",
		Author:      "Various",
		ISBN:        "9780000000001",
		Description: "No longer sold; kept for order history.",
		PriceCents:  999,
		Category:    "anthology",
		Stock:       3,
		Active:      false,
	},
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg)

	db, err := mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return fmt.Errorf("mongodb connection failed: %w", err)
	}
	defer db.Client().Disconnect(context.Background())

	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("index creation failed: %w", err)
	}

	catalog := mongo.NewCatalogStore(db)
	for i := range sampleBooks {
		book, err := catalog.InsertBook(ctx, &sampleBooks[i])
		if err != nil {
			return fmt.Errorf("failed to insert %q: %w", sampleBooks[i].Title, err)
		}
		logger.Info("seeded book", "id", book.ID, "title", book.Title, "stock", book.Stock)
	}

	logger.Info("seed complete", "count", len(sampleBooks))
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}
