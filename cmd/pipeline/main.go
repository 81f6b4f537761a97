package main

import (
	"context"
	"log"
	"os"

	"indofakta-pipeline/config"
	"indofakta-pipeline/runner"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env (local dev only — CI uses Secrets)
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure required dirs exist
	for _, dir := range []string{cfg.Paths.Output, cfg.Paths.Cache, cfg.Paths.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create dir %s: %v", dir, err)
		}
	}

	runID := uuid.NewString()[:8]
	log.Printf("🎬 IndoFakta Pipeline starting — Run ID: %s", runID)

	// Optional topic override: `pipeline <topic>`
	topic := ""
	if len(os.Args) > 1 {
		topic = os.Args[1]
	}

	state, err := runner.New(cfg).Run(context.Background(), runID, topic, nil)
	if err != nil {
		log.Printf("❌ Pipeline failed: %v", err)
		os.Exit(1)
	}
	log.Printf("✅ Pipeline complete! Video: %s", state.VideoFile)
}
