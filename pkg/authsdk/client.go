package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the EventAuth token service. It provides access
// to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AuthenticateWithPassword creates an authenticated session using the
// resource owner password grant.
func (c *SDKClient) AuthenticateWithPassword(
	ctx context.Context,
	clientID, clientSecret, username, password string,
	scopes []string,
) (*Session, error) {
	tokenResp, err := c.PasswordGrant(ctx, clientID, clientSecret, username, password, scopes)
	if err != nil {
		return nil, err
	}

	return newSession(c, clientID, clientSecret, tokenResp), nil
}

// AuthenticateWithRefreshToken creates an authenticated session from an
// existing refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(
	ctx context.Context,
	clientID, clientSecret, refreshToken string,
) (*Session, error) {
	tokenResp, err := c.RefreshGrant(ctx, clientID, clientSecret, refreshToken)
	if err != nil {
		return nil, err
	}

	return newSession(c, clientID, clientSecret, tokenResp), nil
}

// NewSessionFromTokens creates an authenticated session from existing
// tokens, e.g. tokens stored from a previous authentication. The session
// still performs auto-refresh when the access token expires.
func (c *SDKClient) NewSessionFromTokens(
	clientID, clientSecret, accessToken, refreshToken, scope string,
	expiresIn int,
) *Session {
	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)
	expiresAt = expiresAt.Add(-refreshBuffer)

	return &Session{
		client:       c,
		clientID:     clientID,
		clientSecret: clientSecret,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    expiresAt,
		scopes:       parseScopes(scope),
	}
}
