package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eventwise/eventauth/pkg/authsdk"
	"github.com/eventwise/eventauth/pkg/jwtx"
)

// TestHealthEndpoints verifies the liveness and readiness probes.
func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	live, err := client.GetLiveness(t.Context())
	assertHealthy(t, live, err)
	require.NotEmpty(t, live.Uptime)
	require.NotEmpty(t, live.Version)

	ready, err := client.GetReadiness(t.Context())
	assertHealthy(t, ready, err)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)
}

// TestJWKSVerifiesIssuedTokens fetches the published key set and verifies a
// freshly issued token against it, exactly as a resource server would.
func TestJWKSVerifiesIssuedTokens(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	jwks, err := client.GetJWKS(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, jwks.Keys)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.ResetFromJWKS(jwtx.JWKS(*jwks)))
	verifier := jwtx.NewCommonEdDSA(keys, "eventauth", nil)

	session, err := client.AuthenticateWithPassword(t.Context(),
		testClientID, testClientSecret, adminUsername, adminPassword,
		[]string{"dataEventRecords"})
	require.NoError(t, err)

	claims, err := verifier.Verify(session.AccessToken())
	require.NoError(t, err)
	require.Equal(t, "123", claims.Subject)
	require.Equal(t, testClientID, claims.ClientID)
	require.True(t, claims.HasScope("dataEventRecordsScope"))
	require.True(t, claims.HasRole("dataEventRecords.admin"))
}
