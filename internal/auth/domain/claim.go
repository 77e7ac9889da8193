package domain

// Claim is a (type, value) assertion about a subject. Order matters when a
// claim set is rendered into a token, so claim collections are slices, not
// maps.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Canonical claim types used on user records and in issued tokens.
const (
	ClaimTypeName       = "name"
	ClaimTypeGivenName  = "given_name"
	ClaimTypeFamilyName = "family_name"
	ClaimTypeEmail      = "email"
	ClaimTypeRole       = "role"
	ClaimTypeScope      = "scope"
)

// ClaimsOfType returns every value carried for the given claim type,
// preserving order. A claim type may legitimately appear more than once
// (multiple role claims, multiple scope claims).
func ClaimsOfType(claims []Claim, claimType string) []string {
	var out []string
	for _, c := range claims {
		if c.Type == claimType {
			out = append(out, c.Value)
		}
	}
	return out
}
