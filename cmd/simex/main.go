package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/xtrntr/simex/internal/api"
	"github.com/xtrntr/simex/internal/auth"
	"github.com/xtrntr/simex/internal/config"
	"github.com/xtrntr/simex/internal/csvreader"
	"github.com/xtrntr/simex/internal/db"
	"github.com/xtrntr/simex/internal/models"
	"github.com/xtrntr/simex/internal/session"
)

// Main entry point: loads the order feed, runs the menu and the optional market view
func main() {
	// Print a bcrypt hash for SIMEX_OPERATOR_PASSWORD_HASH
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		hash, err := auth.HashPassword(os.Args[2])
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load("simex", os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	orders, err := loadOrders(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load orders: %v", err)
	}

	s, err := session.New(orders, session.Options{User: cfg.User, CarryForward: cfg.CarryForward})
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	if cfg.StartAmount > 0 {
		s.Deposit(cfg.StartAsset, cfg.StartAmount)
	}

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		authService := auth.NewAuthService(cfg.Operator, cfg.OperatorHash, cfg.JWTSecret, s.ID)
		srv = &http.Server{Addr: cfg.HTTPAddr, Handler: api.NewRouter(api.NewHandler(s, authService))}
		go func() {
			log.Printf("Starting market view on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Server failed: %v", err)
			}
		}()
	}

	if err := NewMenu(s, os.Stdin, os.Stdout).Run(); err != nil {
		log.Printf("Menu stopped: %v", err)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to stop server: %v", err)
		}
	}
}

// loadOrders reads the CSV feed when one is configured, otherwise the orders table
func loadOrders(ctx context.Context, cfg *config.Config) ([]models.Order, error) {
	if cfg.CSVPath != "" {
		res, err := csvreader.ReadFile(cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		return res.Orders, nil
	}

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(ctx)
	return database.LoadOrders(ctx)
}
