package main

import (
	"context"
	"flag"
	"os"

	"altelier/internal/config"
	"altelier/internal/db"
	"altelier/internal/importer"
	artworkrepo "altelier/internal/repository/artwork"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()
	path := flag.String("file", "", "path to the catalog CSV export")
	flag.Parse()

	cfg := config.FromEnv()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "importer").Logger()

	if *path == "" {
		logger.Fatal().Msg("missing -file argument")
	}
	f, err := os.Open(*path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open catalog file")
	}
	defer f.Close()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	repo := artworkrepo.NewPostgres(pool, logger)
	imp := importer.NewCSVImporter(f, repo)
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Int("imported", count).Msg("import failed")
	}

	logger.Info().Int("imported", count).Msg("catalog imported")
}
