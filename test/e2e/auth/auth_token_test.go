package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eventwise/eventauth/pkg/authsdk"
)

// TestPasswordLoginAndRefreshRotation covers the complete token lifecycle:
// 1. Login with the password grant
// 2. Refresh the token
// 3. Verify rotation (new tokens differ from old tokens)
// 4. Verify the consumed refresh token cannot be replayed
func TestPasswordLoginAndRefreshRotation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	session, err := client.AuthenticateWithPassword(t.Context(),
		testClientID, testClientSecret, adminUsername, adminPassword,
		[]string{"dataEventRecords", "offline_access"})
	require.NoError(t, err)

	oldAccessToken := session.AccessToken()
	oldRefreshToken := session.RefreshToken()
	require.NotEmpty(t, oldAccessToken)
	require.NotEmpty(t, oldRefreshToken)
	require.True(t, session.HasScope("dataEventRecords"))

	tokenResp, err := client.RefreshGrant(t.Context(), testClientID, testClientSecret, oldRefreshToken)
	require.NoError(t, err)
	assertTokenResponse(t, tokenResp)

	require.NotEqual(t, oldAccessToken, tokenResp.AccessToken, "Access token should be rotated")
	require.NotEqual(t, oldRefreshToken, tokenResp.RefreshToken, "Refresh token should be rotated")

	// Replaying the consumed token must be rejected.
	_, err = client.RefreshGrant(t.Context(), testClientID, testClientSecret, oldRefreshToken)
	assertOAuth2Error(t, err, authsdk.ErrorCodeInvalidGrant)

	// The replacement keeps working.
	tokenResp2, err := client.RefreshGrant(t.Context(), testClientID, testClientSecret, tokenResp.RefreshToken)
	require.NoError(t, err)
	assertTokenResponse(t, tokenResp2)
}

// TestPasswordGrantRejectsBadCredentials covers the failure paths of the
// password grant.
func TestPasswordGrantRejectsBadCredentials(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	_, err := client.PasswordGrant(t.Context(),
		testClientID, "wrong-secret", adminUsername, adminPassword, nil)
	assertOAuth2Error(t, err, authsdk.ErrorCodeInvalidClient)

	_, err = client.PasswordGrant(t.Context(),
		testClientID, testClientSecret, adminUsername, "wrong-password", nil)
	assertOAuth2Error(t, err, authsdk.ErrorCodeInvalidGrant)

	_, err = client.PasswordGrant(t.Context(),
		testClientID, testClientSecret, adminUsername, adminPassword,
		[]string{"notARegisteredScope"})
	assertOAuth2Error(t, err, authsdk.ErrorCodeInvalidScope)
}

// TestRevocation verifies RFC 7009 revocation semantics.
func TestRevocation(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	session, err := client.AuthenticateWithPassword(t.Context(),
		testClientID, testClientSecret, userUsername, userPassword, nil)
	require.NoError(t, err)

	require.NoError(t, session.Revoke(t.Context()))

	// The revoked token no longer refreshes.
	_, err = client.RefreshGrant(t.Context(), testClientID, testClientSecret, session.RefreshToken())
	assertOAuth2Error(t, err, authsdk.ErrorCodeInvalidGrant)

	// Revoking an unknown token still reports success.
	require.NoError(t, client.RevokeToken(t.Context(), testClientID, testClientSecret, "never-issued"))
}
