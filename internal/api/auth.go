// ABOUTME: Bearer token verification for the ledger API.
// ABOUTME: RS256 tokens are checked against a cached JWKS; HS256 only with a development key.
package api

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/harperreed/healthlink/internal/apperr"
	"github.com/harperreed/healthlink/internal/links"
	"github.com/labstack/echo/v4"
)

const (
	defaultJWKSCacheTTL = 5 * time.Minute
	// minJWKSRefresh limits refetches triggered by unknown key ids.
	minJWKSRefresh = 30 * time.Second
	identityKey    = "identity"
)

// Identity is the verified caller.
type Identity struct {
	UserID string
	Role   string
}

// AuthConfig configures token verification.
type AuthConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// DevKey enables HS256 verification; development only.
	DevKey []byte
	// RoleClaim names the claim holding the caller's role.
	RoleClaim string
	JWKSTTL   time.Duration
}

// jwksKey is a single JSON Web Key.
type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwksKey `json:"keys"`
}

// JWKSCache caches RSA keys fetched from a JWKS endpoint.
type JWKSCache struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	url       string
	ttl       time.Duration
	fetchedAt time.Time
	client    *http.Client
}

// NewJWKSCache creates a cache for url. Keys are fetched lazily.
func NewJWKSCache(url string, ttl time.Duration) *JWKSCache {
	if ttl <= 0 {
		ttl = defaultJWKSCacheTTL
	}
	return &JWKSCache{
		keys:   make(map[string]*rsa.PublicKey),
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKey returns the key for kid, refetching when the cache is stale or the
// kid is unknown.
func (c *JWKSCache) GetKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	age := time.Since(c.fetchedAt)
	c.mu.RUnlock()

	if ok && age <= c.ttl {
		return key, nil
	}
	if !ok && age < minJWKSRefresh {
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}

	if err := c.fetch(ctx); err != nil {
		if ok {
			return key, nil
		}
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}
	return key, nil
}

func (c *JWKSCache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var set jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func parseRSAPublicKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// Verifier turns bearer tokens into identities.
type Verifier struct {
	cfg     AuthConfig
	jwks    *JWKSCache
	methods []string
}

// NewVerifier builds a verifier. With a DevKey only HS256 is accepted;
// otherwise only RS256 against cfg.JWKSURL.
func NewVerifier(cfg AuthConfig) (*Verifier, error) {
	if cfg.RoleClaim == "" {
		cfg.RoleClaim = "custom:role"
	}
	v := &Verifier{cfg: cfg}
	switch {
	case len(cfg.DevKey) > 0:
		v.methods = []string{jwt.SigningMethodHS256.Alg()}
	case cfg.JWKSURL != "":
		v.methods = []string{jwt.SigningMethodRS256.Alg()}
		v.jwks = NewJWKSCache(cfg.JWKSURL, cfg.JWKSTTL)
	default:
		return nil, errors.New("a JWKS URL or development signing key is required")
	}
	return v, nil
}

// Verify checks the token signature and claims.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if v.jwks == nil {
			return v.cfg.DevKey, nil
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.jwks.GetKey(ctx, kid)
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("token has no subject")
	}
	role, _ := claims[v.cfg.RoleClaim].(string)
	if role == "" {
		role = links.RolePatient
	}
	return &Identity{UserID: sub, Role: strings.ToLower(role)}, nil
}

// Auth rejects requests without a valid bearer token and stores the
// caller's identity on the context.
func Auth(v *Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return apperr.Auth("Missing or invalid token")
			}

			id, err := v.Verify(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				return apperr.Auth("Missing or invalid token")
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// identityFrom returns the verified caller. Only valid behind Auth.
func identityFrom(c echo.Context) *Identity {
	id, _ := c.Get(identityKey).(*Identity)
	if id == nil {
		return &Identity{}
	}
	return id
}
