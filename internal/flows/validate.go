package flows

import (
	"github.com/MrEthical07/sessioncore/jwt"
)

// ValidateDeps captures access validation dependencies.
type ValidateDeps struct {
	DecodeAccess   func(string) (*jwt.Claims, error)
	NormalizeRoles func([]string) []string
}

// ValidateResult is the authenticated principal or the decode failure.
type ValidateResult struct {
	Subject string
	Email   string
	Roles   []string
	Claims  *jwt.Claims
	Err     error
}

// RunValidate decodes an access credential. It never touches the session
// store: access credentials are valid until expiry.
func RunValidate(tokenStr string, deps ValidateDeps) ValidateResult {
	claims, err := deps.DecodeAccess(tokenStr)
	if err != nil {
		return ValidateResult{Err: err}
	}
	roles := claims.Roles
	if deps.NormalizeRoles != nil {
		roles = deps.NormalizeRoles(roles)
	}
	return ValidateResult{
		Subject: claims.Subject,
		Email:   claims.Email,
		Roles:   roles,
		Claims:  claims,
	}
}
