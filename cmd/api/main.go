package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/migrate"
	"github.com/ovaphlow/pitchfork/service-debts-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()
	if err := utilities.LoadSettingsFile(os.Getenv("CONFIG_FILE")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-debts-go")

	// init db
	cfg := database.ConfigFromEnv()
	db, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if utilities.GetEnvBool("DATABASE_AUTO_MIGRATE", true) {
		if err := migrate.EnsureSchema(context.Background(), db); err != nil {
			sugar.Fatalf("ensure schema: %v", err)
		}
	}

	routerCfg, err := router.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}
	handler, err := router.RegisterRoutes(sugar, db, routerCfg)
	if err != nil {
		sugar.Fatalf("register routes: %v", err)
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              utilities.GetEnvString("HTTP_ADDR", "0.0.0.0:8431"),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", srv.Addr, "driver", cfg.Driver)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
