package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleEmployee = "employee"
	RoleMerchant = "merchant"
	RoleAdmin    = "admin"
)

var ErrInvalidClaims = errors.New("invalid token claims")

// Claims identify the acting user. Employees carry their employee id and
// merchants the merchant they manage.
type Claims struct {
	UserID     string `json:"uid"`
	Role       string `json:"role"`
	MerchantID string `json:"mid,omitempty"`
	EmployeeID string `json:"eid,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) validate() error {
	if c.UserID == "" {
		return ErrInvalidClaims
	}
	switch c.Role {
	case RoleEmployee:
		if c.EmployeeID == "" {
			return ErrInvalidClaims
		}
	case RoleMerchant:
		if c.MerchantID == "" {
			return ErrInvalidClaims
		}
	case RoleAdmin:
	default:
		return ErrInvalidClaims
	}
	return nil
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if err := claims.validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

// UserContext is the authenticated user attached to a request.
type UserContext struct {
	UserID     string
	Role       string
	MerchantID string
	EmployeeID string
}

func (u UserContext) HasRole(roles ...string) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}
