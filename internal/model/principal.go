package model

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	UserID   int64
	Username string
	Role     string
}

func (p Principal) IsAdmin() bool {
	return p.Role == "Admin" || p.Role == "CEO"
}
