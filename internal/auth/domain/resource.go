package domain

// APIResource describes a protected API and the scope a client must be
// granted to call it. Loaded into the registry at startup, read-only after.
type APIResource struct {
	Name string
	// ScopeClaim is the scope claim value stamped into access tokens when a
	// client is granted this resource. Resource servers require it in their
	// scope policy.
	ScopeClaim string
	// UserClaimTypes lists the user claim types forwarded into access
	// tokens for this resource (e.g. "role").
	UserClaimTypes []string
}
