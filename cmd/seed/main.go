package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"bookrecords/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var bookColumns = []string{"title", "author", "publisher", "edition", "language", "pages", "genre", "price", "rating", "stock_status"}

func main() {
	count := flag.Int("count", 1000, "Number of books to insert")
	flag.Parse()

	config.LoadEnvFiles()
	cfg := config.Load()
	slog.SetDefault(cfg.NewLogger())

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	slog.Info("generating books", "count", *count)
	rows := generateRows(rand.New(rand.NewSource(42)), *count)

	inserted, err := pool.CopyFrom(ctx, pgx.Identifier{"books"}, bookColumns, pgx.CopyFromRows(rows))
	if err != nil {
		slog.Error("failed to insert books", "err", err)
		os.Exit(1)
	}
	slog.Info("books inserted", "count", inserted)

	var total int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&total); err == nil {
		slog.Info("total books in database", "count", total)
	}
}

func generateRows(rng *rand.Rand, count int) [][]any {
	genres := []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography", "Philosophy", "Art"}
	languages := []string{"en", "es", "fr", "de", "it", "pt", "zh", "ja"}
	publishers := []string{"Penguin", "HarperCollins", "Oxford", "Cambridge", "MIT Press", "Springer", "Wiley", "Elsevier"}
	authors := []string{"Ada Byron", "Frank Herbert", "Ursula Le Guin", "Octavia Butler", "Isaac Asimov", "Mary Shelley", "Jorge Borges", "Toni Morrison"}
	statuses := []string{"available", "available", "available", "out_of_stock", "preorder"}
	words := []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
	}

	rows := make([][]any, 0, count)
	for i := 0; i < count; i++ {
		title := fmt.Sprintf("%s of %s %d", words[rng.Intn(len(words))], words[rng.Intn(len(words))], i+1)
		edition := fmt.Sprintf("%d", 1+rng.Intn(5))
		pages := 100 + rng.Intn(800)
		price := float64(500+rng.Intn(5000)) / 100
		rating := float64(rng.Intn(51)) / 10

		rows = append(rows, []any{
			title,
			authors[rng.Intn(len(authors))],
			publishers[rng.Intn(len(publishers))],
			edition,
			languages[rng.Intn(len(languages))],
			pages,
			genres[rng.Intn(len(genres))],
			price,
			rating,
			statuses[rng.Intn(len(statuses))],
		})
	}
	return rows
}
