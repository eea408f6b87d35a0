// Package callbackauth signs the callback URLs handed to the call-automation
// service so the webhooks can reject requests that did not originate from
// a call this server set up.
package callbackauth

import (
	"callautomation-server/internal/apierrors"
	"callautomation-server/internal/observability"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// QueryParam carries the token on callback URLs.
const QueryParam = "token"

const (
	issuer   = "callautomation-server"
	tokenTTL = 24 * time.Hour
)

var (
	ErrMissingToken     = errors.New("callback token is missing")
	ErrExpiredToken     = errors.New("callback token expired")
	ErrInvalidToken     = errors.New("callback token is invalid")
	ErrContextMismatch  = errors.New("callback token does not match the callback context")
	ErrScenarioMismatch = errors.New("callback token was minted for another scenario")
)

// Claims identify the call flow a callback URL was minted for.
type Claims struct {
	Scenario string `json:"scenario"`
	jwt.RegisteredClaims
}

// Issuer mints and validates callback tokens. An Issuer with an empty
// secret is disabled: it mints nothing and accepts everything.
type Issuer struct {
	secret []byte
	now    func() time.Time
	logger *observability.Logger
}

func NewIssuer(secret string, logger *observability.Logger) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		now:    time.Now,
		logger: logger,
	}
}

func (i *Issuer) Enabled() bool {
	return len(i.secret) > 0
}

// Mint returns a token whose subject is contextID.
func (i *Issuer) Mint(contextID, scenario string) (string, error) {
	if !i.Enabled() {
		return "", nil
	}
	now := i.now()
	claims := Claims{
		Scenario: scenario,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   contextID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign callback token: %w", err)
	}
	return signed, nil
}

// SignURL appends a token for contextID to rawURL. With the issuer disabled
// the URL is returned unchanged.
func (i *Issuer) SignURL(rawURL, contextID, scenario string) (string, error) {
	if !i.Enabled() {
		return rawURL, nil
	}
	token, err := i.Mint(contextID, scenario)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse callback url: %w", err)
	}
	q := u.Query()
	q.Set(QueryParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Validate parses a token and checks its signature and expiry.
func (i *Issuer) Validate(ctx context.Context, tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, ErrMissingToken
	}

	var claims Claims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			i.logger.Warn(ctx, "callback token expired")
			return Claims{}, ErrExpiredToken
		}
		i.logger.InfoWithError(ctx, "failed to parse callback token", err)
		return Claims{}, ErrInvalidToken
	}
	if !t.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Middleware rejects callbacks without a valid token for scenario when the
// issuer is enabled. The token subject must match the route's :contextId
// parameter, or the scenario itself on routes without one.
func (i *Issuer) Middleware(scenario string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !i.Enabled() {
			c.Next()
			return
		}
		ctx := observability.WithFields(c.Request.Context(), observability.Field{Key: "scenario", Value: scenario})

		claims, err := i.Validate(ctx, c.Query(QueryParam))
		if err != nil {
			reject(c, err)
			return
		}
		if claims.Scenario != scenario {
			i.logger.Warn(ctx, "callback token scenario does not match route")
			reject(c, ErrScenarioMismatch)
			return
		}
		subject := c.Param("contextId")
		if subject == "" {
			subject = scenario
		}
		if claims.Subject != subject {
			i.logger.Warn(ctx, "callback token subject does not match context id")
			reject(c, ErrContextMismatch)
			return
		}

		c.Set("Callback-Scenario", claims.Scenario)
		c.Next()
	}
}

func reject(c *gin.Context, err error) {
	apiErr := apierrors.Unauthorized("Invalid callback token")
	apiErr.Internal = err
	apierrors.RespondWithError(c, apiErr)
	c.Abort()
}
