/*
Package authsdk provides a client SDK for the EventAuth token service.

The package is organized around two main types:

  - SDKClient: unauthenticated operations (token grants, JWKS, health)
  - Session: authenticated state with automatic token refresh

Create an SDKClient to initiate authentication flows:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.AuthenticateWithPassword(
		ctx, "resourceownerclient", "dataEventRecordsSecret",
		"damienbod", "damienbod",
		[]string{"dataEventRecords", "offline_access"},
	)

Sessions refresh automatically. Every call to Session.Token checks the
access token's remaining lifetime (with a 30 second buffer) and performs a
refresh_token grant when needed, so callers never handle expiry themselves:

	token, err := session.Token(ctx)
	req.Header.Set("Authorization", "Bearer "+token)

Revoke the session's refresh token when done:

	err = session.Revoke(ctx)

Errors from the token endpoint are returned as *OAuth2Error carrying the
RFC 6749 error code, so callers can distinguish invalid_grant from
invalid_scope and so on.
*/
package authsdk
