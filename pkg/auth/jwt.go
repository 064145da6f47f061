package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/intisalud/hospital-api/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity extracted from a bearer token. Tokens are minted by
// the upstream identity service with the shared HMAC secret; this package only
// validates them.
type Claims struct {
	StaffID uuid.UUID
	Email   string
	Role    model.StaffRole
}

type tokenClaims struct {
	StaffID string `json:"staff_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Validator checks HS256 bearer tokens against the shared secret.
type Validator struct {
	secret []byte
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Validate parses the token, rejects non-HMAC signing methods and expired
// tokens, and returns the staff identity carried in the claims.
func (v *Validator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	staffID, err := uuid.Parse(claims.StaffID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed staff_id claim", ErrInvalidToken)
	}

	return &Claims{
		StaffID: staffID,
		Email:   claims.Email,
		Role:    model.StaffRole(claims.Role),
	}, nil
}
