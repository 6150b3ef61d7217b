package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the token says about itself. It is read without verifying the
// signature and is only ever displayed; authorization always comes from the platform.
type Claims struct {
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

// Expired reports whether the token's own expiry has passed. A token without an expiry
// never expires.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

func PeekClaims(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("token is not a JWT: %w", err)
	}

	out := &Claims{}
	if sub, err := mc.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if roles, ok := mc["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				out.Roles = append(out.Roles, s)
			}
		}
	}
	return out, nil
}
