// Command generate-key mints a new API key: a hea_<32 hex> secret plus
// its Argon2 hash, persisted against a user. Grounded on
// original_source/scripts/generate_proper_key.rs (uuid-simple body,
// Argon2 hash) extended to also create the owning user and api_keys
// row, since the original script only printed the pair for manual
// insertion.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/Ladvien/self-sensored/config"
	"github.com/Ladvien/self-sensored/internal/auth"
	"github.com/Ladvien/self-sensored/internal/dbconn"
	"github.com/Ladvien/self-sensored/internal/repository"
)

func main() {
	var (
		email        = flag.String("email", "", "Email of the user to create for the key")
		rateLimit    = flag.Int("rate-limit", 0, "Per-hour rate limit override (0 uses the account default)")
		printOnly    = flag.Bool("print-only", false, "Print the key and hash without touching the database")
	)
	flag.Parse()

	if *email == "" && !*printOnly {
		fmt.Println("usage: generate-key -email user@example.com [-rate-limit N]")
		fmt.Println("       generate-key -print-only")
		os.Exit(1)
	}

	cfg := config.LoadFromEnv()
	key := "hea_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	hash, err := auth.HashSecret(key, cfg.Auth)
	if err != nil {
		fmt.Printf("failed to hash secret: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API Key: %s\n", key)
	fmt.Printf("Hash:    %s\n", hash)

	if *printOnly {
		return
	}

	ctx := context.Background()
	db, err := dbconn.Open(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	store := repository.NewKeyStore(db)
	user, err := store.CreateUser(ctx, *email)
	if err != nil {
		fmt.Printf("failed to create user: %v\n", err)
		os.Exit(1)
	}

	var limit *int
	if *rateLimit > 0 {
		limit = rateLimit
	}

	apiKey, err := store.CreateAPIKey(ctx, user.ID, hash, auth.LookupPrefix(key), limit)
	if err != nil {
		fmt.Printf("failed to create api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("User ID:   %s\n", user.ID)
	fmt.Printf("API Key ID: %s\n", apiKey.ID)
}
