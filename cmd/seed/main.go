package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/xtrntr/simex/internal/config"
	"github.com/xtrntr/simex/internal/csvreader"
	"github.com/xtrntr/simex/internal/db"
)

// Seed the orders table from a CSV feed
func main() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	csvPath := fs.String("csv", "testdata/orders.csv", "order feed to load")
	dbURL := fs.String("db", config.DefaultDatabaseURL, "PostgreSQL connection string")
	reset := fs.Bool("reset", false, "truncate the orders table first")
	fs.Parse(os.Args[1:])
	if v, ok := os.LookupEnv("SIMEX_DATABASE_URL"); ok && !isFlagSet(fs, "db") {
		*dbURL = v
	}

	ctx := context.Background()

	// Connect to database
	database, err := db.NewDB(ctx, *dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(ctx)

	res, err := seed(ctx, database, *csvPath, *reset)
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	if res.Existing > 0 {
		fmt.Printf("Database already has %d orders. No need to seed.\n", res.Existing)
		return
	}
	fmt.Printf("Seeded %d orders (%d lines skipped) across %d products\n", res.Inserted, res.Skipped, res.Products)
}

type seedResult struct {
	Existing int // Rows found before seeding; nothing is inserted when positive
	Inserted int
	Skipped  int
	Products int
}

func seed(ctx context.Context, database *db.DB, csvPath string, reset bool) (seedResult, error) {
	if reset {
		if err := database.Truncate(ctx); err != nil {
			return seedResult{}, fmt.Errorf("failed to reset orders: %w", err)
		}
	}

	// First check if we already have orders
	n, err := database.CountOrders(ctx)
	if err != nil {
		return seedResult{}, err
	}
	if n > 0 {
		return seedResult{Existing: n}, nil
	}

	feed, err := csvreader.ReadFile(csvPath)
	if err != nil {
		return seedResult{}, fmt.Errorf("failed to read feed: %w", err)
	}
	inserted, err := database.InsertOrders(ctx, feed.Orders)
	if err != nil {
		return seedResult{}, err
	}
	products, err := database.GetProducts(ctx)
	if err != nil {
		return seedResult{}, err
	}
	return seedResult{Inserted: inserted, Skipped: feed.Skipped, Products: len(products)}, nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
