package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"tillpoint.org/internal/auth"
	"tillpoint.org/internal/config"
	"tillpoint.org/internal/httpapi"
	"tillpoint.org/internal/obs"
	"tillpoint.org/internal/rbac"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// .env is a local-development convenience; real environments set
	// variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.PGDSN == "" {
		log.Fatal("missing TILLPOINT_PG_DSN")
	}
	db, err := sql.Open("pgx", cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	signer, err := auth.NewTokenSigner(cfg.AuthSecret, cfg.AuthAlg, "tillpoint-api")
	if err != nil {
		log.Fatalf("signer: %v", err)
	}
	sessions := auth.NewPGSessionStore(db)
	directory := auth.NewPGDirectory(db)
	svc, err := auth.NewService(sessions, directory, signer,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
		auth.WithIdleTimeout(cfg.IdleTimeout),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Auth:               svc,
		Directory:          directory,
		Catalog:            rbac.Builtin(),
		Ready:              httpapi.ReadyProbe{DB: db},
		Version:            version,
		LoginRatePerSecond: cfg.LoginRatePerSecond,
		LoginRateBurst:     cfg.LoginRateBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting tillpoint-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	obs.SetReady(false)
	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
