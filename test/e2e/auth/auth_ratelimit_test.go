package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eventwise/eventauth/pkg/authsdk"
)

// TestTokenEndpointRateLimiting verifies the strict limit on the token
// endpoint kicks in under the production defaults. The default strict
// profile allows 10 requests per minute per IP and username.
func TestTokenEndpointRateLimiting(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	limited := false
	for i := 0; i < 30; i++ {
		_, err := client.PasswordGrant(t.Context(),
			testClientID, testClientSecret, adminUsername, "wrong-password", nil)
		if err == nil {
			t.Fatal("grant with a wrong password should never succeed")
		}

		var oauthErr *authsdk.OAuth2Error
		if errors.As(err, &oauthErr) && oauthErr.StatusCode == 429 {
			limited = true
			break
		}
	}

	require.True(t, limited, "expected the strict rate limit to trigger within 30 attempts")
}
