package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// AccessTokenPayload is what the caller supplies when minting. An empty JTI
// gets a random one.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	Name       string
	Department string
	Position   string
	JTI        string
}

// AccessTokenClaims is the JWT body. The jti doubles as the session id.
type AccessTokenClaims struct {
	UserID     uuid.UUID      `json:"user_id"`
	Role       enums.UserRole `json:"role"`
	Name       string         `json:"name,omitempty"`
	Department string         `json:"department,omitempty"`
	Position   string         `json:"position,omitempty"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token has no user_id")
	}
	if !c.Role.IsValid() {
		return errors.New("token has an unknown role")
	}
	if c.Subject != c.UserID.String() {
		return errors.New("token subject does not match user_id")
	}
	return nil
}
