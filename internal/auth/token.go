package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken means the token could not be decoded or carries no
	// subject claim. Terminal for the connection attempt.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired means the token's expiry is in the past. Terminal for
	// the connection attempt; the client must re-authenticate.
	ErrTokenExpired = errors.New("token expired")
)

// Identity is the decoded identity carried by a connection token.
type Identity struct {
	UserID      string
	DisplayName string
	ExpiresAt   time.Time
}

// Validator decodes and checks the claims of a bearer token. It performs no
// cryptographic signature verification: the identity provider is trusted
// out-of-band and the token only reaches the gateway over the trusted
// transport. Validation never does I/O.
type Validator struct {
	parser *jwt.Parser
	now    func() time.Time
}

// NewValidator creates a token validator.
func NewValidator() *Validator {
	return &Validator{
		parser: jwt.NewParser(),
		now:    time.Now,
	}
}

// Validate decodes the token and checks its subject and expiry claims.
func (v *Validator) Validate(token string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := v.parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}

	id := Identity{
		UserID:      sub,
		DisplayName: toString(claims["name"]),
		ExpiresAt:   toTime(claims["exp"]),
	}
	if !id.ExpiresAt.IsZero() && id.ExpiresAt.Before(v.now()) {
		return Identity{}, ErrTokenExpired
	}
	return id, nil
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toTime converts a JWT numeric date claim to time.Time.
func toTime(v interface{}) time.Time {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0)
	case int64:
		return time.Unix(t, 0)
	}
	return time.Time{}
}
