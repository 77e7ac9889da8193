package app

import (
	"context"
	"fmt"
	"time"

	"github.com/eventwise/eventauth/internal/auth/domain"
	"github.com/eventwise/eventauth/internal/auth/registry"
	"github.com/eventwise/eventauth/pkg/cryptox"
)

// Demo credentials mirroring the sample deployment. Real deployments
// disable seeding and register their own clients and users.
const (
	demoClientID     = "resourceownerclient"
	demoClientSecret = "dataEventRecordsSecret"
)

// initRegistry builds the static client and API resource registrations.
func (app *Application) initRegistry() error {
	secretHash, err := cryptox.HashSecret(demoClientSecret)
	if err != nil {
		return fmt.Errorf("hash client secret: %w", err)
	}

	reg, err := registry.New(
		[]domain.Client{{
			ID:         demoClientID,
			Name:       "Resource Owner Client",
			SecretHash: secretHash,
			GrantTypes: []string{domain.GrantPassword, domain.GrantRefreshToken},
			Scopes: []string{
				"openid",
				"profile",
				"email",
				"dataEventRecords",
				"offline_access",
			},
			AccessTokenTTL:     accessTTLOrDefault(app.cfg.AccessTTL),
			AllowOfflineAccess: true,
		}},
		[]domain.APIResource{{
			Name:       "dataEventRecords",
			ScopeClaim: "dataEventRecordsScope",
			UserClaimTypes: []string{
				domain.ClaimTypeRole,
				domain.ClaimTypeName,
				domain.ClaimTypeEmail,
			},
		}},
	)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	app.registry = reg
	return nil
}

func accessTTLOrDefault(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return 900 * time.Second
}

// seedDemoUsers inserts the demo accounts, but only into an empty database
// so repeated startups and real data are left untouched.
func (app *Application) seedDemoUsers(ctx context.Context) error {
	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check user table: %w", err)
	}
	if !empty {
		return nil
	}

	demoUsers := []struct {
		subject  string
		username string
		password string
		roles    []string
	}{
		{
			subject:  "123",
			username: "damienbod",
			password: "damienbod",
			roles:    []string{"dataEventRecords.admin", "dataEventRecords.user"},
		},
		{
			subject:  "124",
			username: "raphael",
			password: "raphael",
			roles:    []string{"dataEventRecords.user"},
		},
	}

	for _, du := range demoUsers {
		hash, err := cryptox.HashSecret(du.password)
		if err != nil {
			return fmt.Errorf("hash demo password: %w", err)
		}

		claims := []domain.Claim{
			{Type: domain.ClaimTypeName, Value: du.username},
			{Type: domain.ClaimTypeEmail, Value: du.username + "@example.com"},
		}
		for _, role := range du.roles {
			claims = append(claims, domain.Claim{Type: domain.ClaimTypeRole, Value: role})
		}

		if err := app.db.Users().CreateUser(ctx, domain.User{
			Subject:      du.subject,
			Username:     du.username,
			Email:        du.username + "@example.com",
			PasswordHash: hash,
			Claims:       claims,
		}); err != nil {
			return fmt.Errorf("seed user %s: %w", du.username, err)
		}

		app.logger.Info("demo user seeded", "username", du.username, "subject", du.subject)
	}

	return nil
}
