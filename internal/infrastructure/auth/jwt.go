package auth

import (
	"errors"
	"time"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/domain/plant"
	"github.com/fibc/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrUnknownRole      = errors.New("unknown role in claims")
)

// Claims are the claims the plant backend reads from an access token
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Departments []string `json:"departments,omitempty"`
}

// Caller converts validated claims into the identity passed to services.
// Unknown department slugs are dropped.
func (c *Claims) Caller() (identity.Caller, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return identity.Caller{}, ErrMissingUserID
	}
	role, ok := identity.ParseRole(c.Role)
	if !ok {
		return identity.Caller{}, ErrUnknownRole
	}
	deps := make([]plant.Department, 0, len(c.Departments))
	for _, s := range c.Departments {
		if d, ok := plant.ParseDepartment(s); ok {
			deps = append(deps, d)
		}
	}
	return identity.NewCaller(userID, c.Username, role, deps...), nil
}

// JWTService validates tokens issued by the external auth service. Issue is
// provided for local tooling and tests.
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// Issue signs an HS256 access token for caller
func (s *JWTService) Issue(caller identity.Caller, ttl time.Duration) (string, error) {
	now := s.now()
	deps := make([]string, len(caller.Departments))
	for i, d := range caller.Departments {
		deps[i] = d.String()
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   caller.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:      caller.UserID.String(),
		Username:    caller.Username,
		Role:        caller.Role.String(),
		Departments: deps,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate parses and verifies a token and returns its claims
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// Authenticate validates a token and returns the caller it identifies
func (s *JWTService) Authenticate(tokenString string) (identity.Caller, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return identity.Caller{}, err
	}
	return claims.Caller()
}
