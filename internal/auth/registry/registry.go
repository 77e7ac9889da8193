// Package registry holds the static OAuth2 client and API resource
// configuration. Registrations are loaded once at startup and never mutated
// afterwards, so lookups need no locking.
package registry

import (
	"errors"
	"fmt"

	"github.com/eventwise/eventauth/internal/auth/domain"
)

var (
	ErrUnknownClient   = errors.New("registry: unknown client")
	ErrUnknownResource = errors.New("registry: unknown api resource")
)

type Registry struct {
	clients   map[string]domain.Client
	resources map[string]domain.APIResource
}

// New builds a Registry from static client and resource definitions.
// Duplicate IDs are rejected so configuration mistakes fail at startup
// rather than at token time.
func New(clients []domain.Client, resources []domain.APIResource) (*Registry, error) {
	r := &Registry{
		clients:   make(map[string]domain.Client, len(clients)),
		resources: make(map[string]domain.APIResource, len(resources)),
	}

	for _, c := range clients {
		if c.ID == "" {
			return nil, errors.New("registry: client with empty id")
		}
		if _, ok := r.clients[c.ID]; ok {
			return nil, fmt.Errorf("registry: duplicate client %q", c.ID)
		}
		r.clients[c.ID] = c
	}

	for _, res := range resources {
		if res.Name == "" {
			return nil, errors.New("registry: api resource with empty name")
		}
		if _, ok := r.resources[res.Name]; ok {
			return nil, fmt.Errorf("registry: duplicate api resource %q", res.Name)
		}
		r.resources[res.Name] = res
	}

	return r, nil
}

// Client returns the registered client with the given ID.
func (r *Registry) Client(id string) (domain.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return domain.Client{}, ErrUnknownClient
	}
	return c, nil
}

// APIResource returns the registered API resource with the given name.
func (r *Registry) APIResource(name string) (domain.APIResource, error) {
	res, ok := r.resources[name]
	if !ok {
		return domain.APIResource{}, ErrUnknownResource
	}
	return res, nil
}

// Clients returns all registered clients.
func (r *Registry) Clients() []domain.Client {
	out := make([]domain.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Resources returns all registered API resources.
func (r *Registry) Resources() []domain.APIResource {
	out := make([]domain.APIResource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	return out
}

// ResourcesForScopes returns the API resources whose names appear in the
// granted scope list. Used to derive the token audience.
func (r *Registry) ResourcesForScopes(scopes []string) []domain.APIResource {
	var out []domain.APIResource
	for _, s := range scopes {
		if res, ok := r.resources[s]; ok {
			out = append(out, res)
		}
	}
	return out
}
