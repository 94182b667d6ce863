package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrUnauthorized = errors.New("unauthorized")
)

// Scope limits what a control API token may do.
type Scope string

const (
	ScopeViewer   Scope = "viewer"
	ScopeOperator Scope = "operator"
)

var scopeRank = map[Scope]int{
	ScopeViewer:   1,
	ScopeOperator: 2,
}

// AuthService issues and checks tokens for the local control API.
type AuthService interface {
	GenerateToken(subject string, scope Scope) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	Authorize(claims *Claims, required Scope) error
}

// Claims are the JWT claims issued to control API clients
type Claims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

type authService struct {
	jwtSecret []byte
	tokenTTL  time.Duration
	issuer    string
}

// NewAuthService creates a HS256 token service
func NewAuthService(jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		issuer:    "manualcall",
	}
}

func (s *authService) GenerateToken(subject string, scope Scope) (string, error) {
	if _, ok := scopeRank[scope]; !ok {
		return "", ErrUnauthorized
	}
	now := time.Now()
	claims := &Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// Authorize checks that claims carry at least the required scope
func (s *authService) Authorize(claims *Claims, required Scope) error {
	if claims == nil {
		return ErrUnauthorized
	}
	have, ok := scopeRank[claims.Scope]
	if !ok || have < scopeRank[required] {
		return ErrUnauthorized
	}
	return nil
}
