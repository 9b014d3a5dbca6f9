// Command schema creates the database tables and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/migrate"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

func main() {
	_ = godotenv.Load()
	if err := utilities.LoadSettingsFile(os.Getenv("CONFIG_FILE")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	cfg := database.ConfigFromEnv()
	db, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		sugar.Fatalf("ensure schema: %v", err)
	}
	sugar.Infow("schema ready", "driver", cfg.Driver)
}
