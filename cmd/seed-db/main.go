package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipex/server/internal/repository"
)

// baseIngredients is the minimal catalog seeded when no ingredients file is
// given, enough to exercise the prescription endpoints.
var baseIngredients = []string{
	"Metformin",
	"Ramipril",
	"Atorvastatin",
	"Furosemide",
	"Warfarin",
	"Levothyroxine",
	"Omeprazole",
	"Insulin Glargine",
	"Amlodipine",
	"Paracetamol",
}

func main() {
	var (
		databaseURL     string
		ingredientsFile string
		apiKey          string
		apiKeyPepper    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&ingredientsFile, "ingredients-file", "", "path to an active-ingredients JSON file (optional)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or RECIPEX_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or RECIPEX_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("RECIPEX_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or RECIPEX_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("RECIPEX_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, ingredientsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, ingredientsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedIngredients(ctx, pool, ingredientsFile); err != nil {
		return errors.Wrap(err, "seed ingredients")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedIngredients(ctx context.Context, pool *pgxpool.Pool, ingredientsFile string) error {
	names := baseIngredients
	if ingredientsFile != "" {
		slog.Info("reading ingredients file", slog.String("path", ingredientsFile))

		data, err := os.ReadFile(ingredientsFile)
		if err != nil {
			return errors.Wrap(err, "read ingredients file")
		}
		if err := json.Unmarshal(data, &names); err != nil {
			return errors.Wrap(err, "parse ingredients JSON")
		}
	}

	slog.Info("upserting ingredients", slog.Int("count", len(names)))

	const upsert = `
INSERT INTO active_ingredients (name)
VALUES ($1)
ON CONFLICT (name) DO NOTHING`

	for _, name := range names {
		if _, err := pool.Exec(ctx, upsert, name); err != nil {
			return errors.Wrapf(err, "upsert ingredient %s", name)
		}
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	const upsert = `
INSERT INTO api_keys (id, key_hash, name, scopes, active)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	key_hash = EXCLUDED.key_hash,
	name = EXCLUDED.name,
	scopes = EXCLUDED.scopes,
	active = EXCLUDED.active`

	if _, err := pool.Exec(ctx, upsert,
		"default", keyHash, "Default test key", []string{"full_access"}, true,
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default test key"))

	return nil
}
