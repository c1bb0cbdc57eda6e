package auth

import (
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	ActorID uuid.UUID
	Role    enums.StaffRole
	Name    string
}

// AccessTokenClaims represents the typed JWT issued to staff clients.
type AccessTokenClaims struct {
	ActorID uuid.UUID       `json:"actor_id"`
	Role    enums.StaffRole `json:"role"`
	Name    string          `json:"name,omitempty"`
	jwt.RegisteredClaims
}
