package auth

import (
	"strings"

	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID       string
	Name         string
	Role         enums.ActorRole
	RestaurantID string
	JTI          string
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	UserID       string          `json:"user_id"`
	Name         string          `json:"name,omitempty"`
	Role         enums.ActorRole `json:"role"`
	RestaurantID string          `json:"restaurant_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller as seen by services.
type Actor struct {
	ID           string
	Name         string
	Role         enums.ActorRole
	RestaurantID string
}

// Actor projects the claims into the identity services act on.
func (c *AccessTokenClaims) Actor() Actor {
	return Actor{
		ID:           c.UserID,
		Name:         strings.TrimSpace(c.Name),
		Role:         c.Role,
		RestaurantID: c.RestaurantID,
	}
}

// IsZero reports whether no identity was resolved.
func (a Actor) IsZero() bool {
	return a.ID == ""
}

// Is reports whether the actor holds one of the roles.
func (a Actor) Is(roles ...enums.ActorRole) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}
