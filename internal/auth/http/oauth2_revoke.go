package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/eventwise/eventauth/internal/auth/service"
	"github.com/eventwise/eventauth/pkg/authsdk"
	"github.com/eventwise/eventauth/pkg/slogx"
)

// RevokeHandler serves POST /v1/oauth2/revoke per RFC 7009. Only refresh
// tokens are revocable; access tokens stay valid until they expire.
type RevokeHandler struct {
	TokenService *service.TokenService
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	clientID, clientSecret := clientCredentials(r, r.Form)
	token := r.Form.Get("token")

	if clientID == "" || token == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.TokenService.RevokeRefreshToken(ctx, clientID, clientSecret, token); err != nil {
		if errors.Is(err, service.ErrInvalidClient) {
			authsdk.ErrInvalidClient.WriteError(w)
			return
		}
		log.Error("revocation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	// RFC 7009: the server responds 200 whether or not the token existed.
	w.WriteHeader(http.StatusOK)
}
