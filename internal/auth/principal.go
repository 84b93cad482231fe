package auth

// Role names carried in tokens.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Principal is the request-scoped identity derived from a verified token.
type Principal struct {
	AccountID string
	Email     string
	Role      string
}

// IsAdmin reports whether the principal acts with the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// PrincipalFromClaims converts verified claims into a principal.
func PrincipalFromClaims(c *Claims) Principal {
	return Principal{AccountID: c.AccountID(), Email: c.Email, Role: c.Role}
}
