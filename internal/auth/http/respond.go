package http

import (
	"net/http"
	"strings"

	"github.com/eventwise/eventauth/internal/auth/domain"
	"github.com/eventwise/eventauth/pkg/authsdk"
	"github.com/eventwise/eventauth/pkg/httpx"
)

// writeTokenResponse renders a token pair as an RFC 6749 token response.
// Token responses must never be cached.
func writeTokenResponse(w http.ResponseWriter, pair domain.TokenPair) {
	response := authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		Scope:        strings.TrimSpace(pair.Scope),
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}
