package http

import (
	"net/http"

	"github.com/eventwise/eventauth/pkg/authsdk"
	"github.com/eventwise/eventauth/pkg/httpx"
	"github.com/eventwise/eventauth/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
// Resource servers fetch this to verify access token signatures locally.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
