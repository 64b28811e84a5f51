package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"kennel-portal/agent"
	"kennel-portal/config"
	"kennel-portal/models"
	"kennel-portal/observability"
)

var (
	ErrNoToken       = errors.New("no bearer token")
	ErrNotConfigured = errors.New("jwt secret is not configured")
)

// Claims are the token fields the portal reads. Subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Resolver turns a bearer token into a Caller.
type Resolver struct {
	secret []byte
	issuer string
}

func NewResolver(cfg config.JWTConfig) *Resolver {
	return &Resolver{secret: []byte(cfg.Secret), issuer: strings.TrimSpace(cfg.Issuer)}
}

// Resolve verifies an Authorization header value. Without a configured secret
// every token is rejected.
func (r *Resolver) Resolve(header string) (*agent.Caller, error) {
	token, ok := bearerToken(header)
	if !ok {
		return nil, ErrNoToken
	}
	if len(r.secret) == 0 {
		return nil, ErrNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return nil, errors.New("token has no subject")
	}
	return &agent.Caller{UserID: sub, Email: claims.Email}, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

const callerKey = "kennel.caller"

// Identify resolves the caller for every request. Requests without a valid
// token continue anonymously; handlers decide whether that is allowed.
func Identify(resolver *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := resolver.Resolve(c.GetHeader("Authorization"))
		if err != nil {
			if !errors.Is(err, ErrNoToken) {
				logger := observability.FromContext(c.Request.Context())
				logger.Debug().Err(err).Msg("bearer token rejected")
			}
			c.Next()
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller resolved by Identify, or nil.
func CallerFrom(c *gin.Context) *agent.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, _ := v.(*agent.Caller)
	return caller
}

// RequireCaller rejects anonymous requests with the standard envelope.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.Fail(models.CodeUnauthorized, errors.New("sign in required")))
			return
		}
		c.Next()
	}
}
