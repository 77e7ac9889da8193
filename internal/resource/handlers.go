package resource

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/eventwise/eventauth/pkg/httpx"
	"github.com/eventwise/eventauth/pkg/jwtx"
	"github.com/eventwise/eventauth/pkg/slogx"
)

// Server is the data event records API. Every route requires a verified
// access token; write operations additionally require the admin policy.
type Server struct {
	Authz   *Authorizer
	Records *RecordStore
}

func NewServer(verifier jwtx.Verifier) *Server {
	return &Server{
		Authz: &Authorizer{
			Verifier: verifier,
			Policies: DataEventRecordsPolicies(),
		},
		Records: NewRecordStore(),
	}
}

// Handler builds the route table with authentication, policy checks, and
// rate limits applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	user := s.Authz.Require("user")
	admin := s.Authz.Require("admin")
	limit := httpx.RateLimitByIP(httpx.ModerateLimit)

	mux.Handle("GET /api/dataeventrecords",
		httpx.Chain(http.HandlerFunc(s.handleList), user, limit))
	mux.Handle("GET /api/dataeventrecords/{id}",
		httpx.Chain(http.HandlerFunc(s.handleGet), user, limit))
	mux.Handle("POST /api/dataeventrecords",
		httpx.Chain(http.HandlerFunc(s.handleCreate), admin, limit))
	mux.Handle("PUT /api/dataeventrecords/{id}",
		httpx.Chain(http.HandlerFunc(s.handleUpdate), admin, limit))
	mux.Handle("DELETE /api/dataeventrecords/{id}",
		httpx.Chain(http.HandlerFunc(s.handleDelete), admin, limit))

	// Identity echo endpoint: returns the caller's verified claims. Any
	// token minted for this API may read it, regardless of role.
	authn := httpx.AuthnMiddleware(s.Authz.Verifier)
	anyScope := httpx.RequireAnyScope("dataEventRecordsScope")
	mux.Handle("GET /identity",
		httpx.Chain(http.HandlerFunc(s.handleIdentity), authn, anyScope, limit))

	return mux
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.Records.List())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rec, err := s.Records.Get(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rec DataEventRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if rec.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	rec.Owner = httpx.SubjectFromContext(r.Context())
	created := s.Records.Create(rec)

	slogx.FromContext(r.Context()).Info("record created",
		"id", created.ID, "owner", created.Owner)
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var rec DataEventRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	updated, err := s.Records.Update(id, rec)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := s.Records.Delete(id); err != nil {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type identityClaim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	claims, _ := httpx.ClaimsFromContext(r.Context())

	out := []identityClaim{
		{Type: "sub", Value: claims.Subject},
		{Type: "client_id", Value: claims.ClientID},
	}
	for _, role := range claims.Roles {
		out = append(out, identityClaim{Type: "role", Value: role})
	}
	for _, scope := range claims.Scopes {
		out = append(out, identityClaim{Type: "scope", Value: scope})
	}
	if claims.Name != "" {
		out = append(out, identityClaim{Type: "name", Value: claims.Name})
	}
	if claims.Email != "" {
		out = append(out, identityClaim{Type: "email", Value: claims.Email})
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
