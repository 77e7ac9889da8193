// The resource server hosts the data event records API. It fetches the
// auth service's JWKS at startup and verifies access tokens locally.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventwise/eventauth/internal/resource"
	"github.com/eventwise/eventauth/pkg/authsdk"
	"github.com/eventwise/eventauth/pkg/jwtx"
	"github.com/eventwise/eventauth/pkg/slogx"
)

func main() {
	authURL := envOrDefault("AUTH_URL", "http://localhost:8080")
	issuer := envOrDefault("AUTH_ISSUER", "eventauth")
	algorithm := envOrDefault("AUTH_ALGORITHM", "EdDSA")
	port := envOrDefault("PORT", "8081")

	logger := slogx.New(slogx.Config{
		Service: "dataeventrecords",
		Env:     envOrDefault("ENV", "dev"),
		Level:   envOrDefault("LOG_LEVEL", "info"),
		Format:  envOrDefault("LOG_FORMAT", "json"),
	})

	keys, err := fetchKeys(authURL)
	if err != nil {
		log.Fatalf("failed to load JWKS from %s: %v", authURL, err)
	}

	var verifier jwtx.Verifier
	switch algorithm {
	case jwtx.AlgorithmRS256:
		verifier = jwtx.NewCommonRS256(keys, issuer, []string{"dataEventRecords"})
	case jwtx.AlgorithmEdDSA:
		verifier = jwtx.NewCommonEdDSA(keys, issuer, []string{"dataEventRecords"})
	default:
		log.Fatalf("unsupported algorithm %q", algorithm)
	}

	srv := resource.NewServer(verifier)
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           slogx.HTTPMiddleware(logger)(srv.Handler()),
		ReadHeaderTimeout: 3 * time.Second,
	}

	logger.Info("resource server starting", "port", port, "auth_url", authURL)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}

// fetchKeys downloads the JWKS, retrying briefly so the resource server can
// start alongside the auth service.
func fetchKeys(authURL string) (*jwtx.KeySet, error) {
	sdk := authsdk.NewSDKClient(authURL)

	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		jwks, err := sdk.GetJWKS(ctx)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		keys := jwtx.NewKeySet()
		if err := keys.ResetFromJWKS(jwtx.JWKS(*jwks)); err != nil {
			return nil, fmt.Errorf("parse JWKS: %w", err)
		}
		return keys, nil
	}

	return nil, lastErr
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
