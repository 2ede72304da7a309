package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fibc/backend/internal/domain/identity"
	"github.com/fibc/backend/internal/infrastructure/auth"
	"github.com/fibc/backend/internal/infrastructure/logger"
	"github.com/fibc/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys and header names
const (
	CallerKey     = "caller"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	// TokenQueryKey carries the token for websocket upgrades, which cannot set headers from browsers
	TokenQueryKey = "access_token"
)

// Authenticator turns a bearer token into the caller identity
type Authenticator interface {
	Authenticate(token string) (identity.Caller, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Authenticator Authenticator
	// AllowQueryToken accepts ?access_token= when no header is sent
	AllowQueryToken bool
	Logger          *zap.Logger
}

// JWTAuth rejects requests without a valid token and stores the caller
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		token, err := extractToken(c, cfg.AllowQueryToken)
		if err != nil {
			abortUnauthorized(c, cfg.Logger, err)
			return
		}

		caller, err := cfg.Authenticator.Authenticate(token)
		if err != nil {
			abortUnauthorized(c, cfg.Logger, err)
			return
		}

		c.Set(CallerKey, caller)
		ctx := logger.WithCaller(c.Request.Context(), caller.UserID.String(), caller.Role.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractToken(c *gin.Context, allowQuery bool) (string, error) {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" {
		if allowQuery {
			if t := c.Query(TokenQueryKey); t != "" {
				return t, nil
			}
		}
		return "", errMissingToken
	}
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", auth.ErrInvalidToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}

var errMissingToken = errors.New("missing authorization token")

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrMissingUserID),
		errors.Is(err, auth.ErrUnknownRole):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetCaller returns the caller stored by JWTAuth
func GetCaller(c *gin.Context) (identity.Caller, bool) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return identity.Caller{}, false
	}
	caller, ok := v.(identity.Caller)
	return caller, ok
}
