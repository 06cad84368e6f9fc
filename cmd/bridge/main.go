package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bridgeconnector/internal/api"
	"bridgeconnector/internal/bridge"
	"bridgeconnector/internal/cart"
	"bridgeconnector/internal/commerce/woocommerce"
	"bridgeconnector/internal/config"
	"bridgeconnector/internal/crypto"
	"bridgeconnector/internal/database"
	"bridgeconnector/internal/events"
	"bridgeconnector/internal/logger"
	"bridgeconnector/internal/storekey"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("Starting bridge connector...")

	db, err := database.New(cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	env, err := loadEnvelope(cfg)
	if err != nil {
		appLogger.Fatal("Failed to load encryption keys: %v", err)
	}

	keys := storekey.NewManager(db.DB, cfg.TablePrefix, cfg.Multisite, cfg.StoreKeyFile, appLogger)
	if _, err := keys.Load(); err != nil {
		appLogger.Warn("Store key not ready yet: %v", err)
	}

	store := woocommerce.NewStore(db.DB, cfg.TablePrefix, appLogger)

	if cfg.KafkaBrokers != "" {
		publisher := events.NewPublisher(strings.Split(cfg.KafkaBrokers, ","), appLogger)
		defer publisher.Close()
		store.AddHook(publisher)
	}

	registry := cart.NewRegistry()
	bridge.RegisterWoocommerceActions(registry, store)

	b := bridge.New(cfg, env, db, store, registry, appLogger)
	server := api.New(cfg, appLogger, b, keys)

	go func() {
		if err := server.Start(); err != nil {
			appLogger.Error("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		appLogger.Error("Forced shutdown: %v", err)
	}
}

// loadEnvelope picks RSA mode when key files are configured, plain
// obfuscation otherwise.
func loadEnvelope(cfg *config.Config) (*crypto.Envelope, error) {
	if cfg.PublicKeyFile == "" {
		return crypto.NewPlain(), nil
	}

	pubPEM, err := os.ReadFile(cfg.PublicKeyFile)
	if err != nil {
		return nil, err
	}
	pub, err := crypto.LoadPublicKey(pubPEM)
	if err != nil {
		return nil, err
	}

	if cfg.PrivateKeyFile == "" {
		return crypto.NewRSA(pub, nil, cfg.KeyID), nil
	}
	privPEM, err := os.ReadFile(cfg.PrivateKeyFile)
	if err != nil {
		return nil, err
	}
	priv, err := crypto.LoadPrivateKey(privPEM)
	if err != nil {
		return nil, err
	}
	return crypto.NewRSA(pub, priv, cfg.KeyID), nil
}
