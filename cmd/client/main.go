// The console client demonstrates the full token lifecycle against a
// running auth and resource server: password login, an authenticated API
// call, then periodic refresh token rotation until interrupted.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventwise/eventauth/pkg/authsdk"
)

func main() {
	authURL := envOrDefault("AUTH_URL", "http://localhost:8080")
	resourceURL := envOrDefault("RESOURCE_URL", "http://localhost:8081")
	username := envOrDefault("AUTH_USERNAME", "damienbod")
	password := envOrDefault("AUTH_PASSWORD", "damienbod")
	interval := 3 * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sdk := authsdk.NewSDKClient(authURL)
	session, err := sdk.AuthenticateWithPassword(ctx,
		"resourceownerclient", "dataEventRecordsSecret",
		username, password,
		[]string{"dataEventRecords", "offline_access"},
	)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	fmt.Printf("logged in as %s\n", username)
	fmt.Printf("granted scopes: %v\n", session.Scopes())

	if err := callIdentity(ctx, resourceURL, session); err != nil {
		log.Printf("identity call failed: %v", err)
	}

	// Rotate the refresh token on a short interval to show that each token
	// works exactly once and a replacement is always handed back.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("revoking session and exiting")
			revokeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := session.Revoke(revokeCtx); err != nil {
				log.Printf("revoke failed: %v", err)
			}
			return
		case <-ticker.C:
			resp, err := session.Refresh(ctx)
			if err != nil {
				log.Fatalf("refresh failed: %v", err)
			}
			fmt.Printf("rotated refresh token, new access token expires in %ds\n", resp.ExpiresIn)

			if err := callIdentity(ctx, resourceURL, session); err != nil {
				log.Printf("identity call failed: %v", err)
			}
		}
	}
}

func callIdentity(ctx context.Context, resourceURL string, session *authsdk.Session) error {
	token, err := session.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL+"/identity", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("identity returned %d: %s", resp.StatusCode, body)
	}

	var claims []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return err
	}

	fmt.Println("identity claims:")
	for _, c := range claims {
		fmt.Printf("  %s: %s\n", c.Type, c.Value)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
