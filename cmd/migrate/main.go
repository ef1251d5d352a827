package main

import (
	"context"
	"log"
	"os"

	"gocohort/adapters/excel"
	"gocohort/adapters/postgres"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		databaseURL = os.Args[1]
	}
	if databaseURL == "" {
		log.Fatal("Usage: migrate <database_url> [actors_file]")
	}
	driver := os.Getenv("DATABASE_DRIVER")

	ctx := context.Background()
	db, err := postgres.Connect(ctx, driver, databaseURL, os.Getenv("SSL_MODE"))
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	defer db.Close()
	log.Println("Schema is up to date")

	if len(os.Args) < 3 {
		return
	}

	actors, err := excel.NewFileSource(os.Args[2]).ListActors(ctx, 0)
	if err != nil {
		log.Fatalf("Failed to read actors: %v", err)
	}
	migrated, skipped := 0, 0
	valid := actors[:0]
	for _, a := range actors {
		if err := a.DriverDistribution.Validate(); err != nil {
			log.Printf("Skipping %s: %v", a.ActorID, err)
			skipped++
			continue
		}
		valid = append(valid, a)
		migrated++
	}
	if err := postgres.NewActorRepository(db).SaveActors(ctx, valid); err != nil {
		log.Fatalf("Failed to store actors: %v", err)
	}
	log.Printf("Migration complete: %d actors stored, %d skipped", migrated, skipped)
}
