package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/config"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/database"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/logger"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/repository"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/service"
)

func main() {
	cfg := config.Load()

	var seedFile string
	flag.StringVar(&seedFile, "file", cfg.SeedFile, "Path to the YAML fixture")
	flag.Parse()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	seed, err := repository.LoadSeed(seedFile, cfg.Location)
	if err != nil {
		log.Fatal().Err(err).Str("file", seedFile).Msg("Failed to load seed file")
	}
	if err := seed.HashPasswords(func(p string) (string, error) {
		return service.HashPassword(p, cfg.BcryptCost)
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to hash passwords")
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.MaxDBConns, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Printf("=== Seeding from %s ===\n", seedFile)
	if err := repository.NewPostgresCatalog(pool).Import(ctx, seed); err != nil {
		log.Fatal().Err(err).Msg("Seed failed")
	}

	questions := 0
	for _, t := range seed.Tests {
		questions += len(t.Questions)
	}
	fmt.Printf("Seed completed: %d candidates, %d tests, %d questions, %d sessions.\n",
		len(seed.Candidates), len(seed.Tests), questions, len(seed.Sessions))
}
