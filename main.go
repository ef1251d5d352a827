package main

import (
	"context"
	"log"

	"gocohort/internal"
	"gocohort/internal/api"
	"gocohort/internal/config"
	"gocohort/internal/container"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(appConfig.LogLevel))

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	if err := appContainer.Init(context.Background(), true); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	server := api.NewServer(appContainer.Segmentation, appContainer.RunOptions(), appConfig.Server.GinMode)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}
