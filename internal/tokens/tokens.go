package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gogotex/gogotex/backend/auth-sessions/internal/config"
)

// Kind selects which secret/expiry pair signs or verifies a token.
type Kind int

const (
	Access Kind = iota
	Refresh
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	ErrMalformed        = errors.New("token malformed")
	ErrExpired          = errors.New("token expired")
	ErrInvalidSignature = errors.New("token signature invalid")
)

// Claims is the claim set shared by access and refresh tokens.
type Claims struct {
	SubjectID string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

type keyConfig struct {
	secret []byte
	ttl    time.Duration
}

// Codec signs and verifies HS256 tokens. It holds no mutable state.
type Codec struct {
	keys map[Kind]keyConfig
	now  func() time.Time
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock replaces the time source used for iat/exp and for validation.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a codec from the JWT section of the configuration.
func NewCodec(cfg config.JWTConfig, opts ...Option) (*Codec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("tokens: access and refresh secrets are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("tokens: expiries must be positive")
	}
	c := &Codec{
		keys: map[Kind]keyConfig{
			Access:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			Refresh: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// TTL returns the configured lifetime for kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	return c.keys[kind].ttl
}

// Issue signs claims with the secret and expiry configured for kind.
func (c *Codec) Issue(claims Claims, kind Kind) (string, error) {
	k, ok := c.keys[kind]
	if !ok {
		return "", fmt.Errorf("tokens: unknown kind %v", kind)
	}
	now := c.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.SubjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString(k.secret)
}

// Verify checks signature and expiry against the secret for kind. Errors are
// one of ErrMalformed, ErrExpired or ErrInvalidSignature.
func (c *Codec) Verify(raw string, kind Kind) (*Claims, error) {
	k, ok := c.keys[kind]
	if !ok {
		return nil, fmt.Errorf("tokens: unknown kind %v", kind)
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return k.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	if !parsed.Valid || claims.SubjectID == "" || claims.SessionID == "" {
		return nil, ErrMalformed
	}
	return &claims, nil
}
