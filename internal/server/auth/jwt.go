// Package auth implements credential hashing and the access/refresh token
// pair used for sessions.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")

	ErrMissingSecret = errors.New("token secret is required")
	ErrSameSecret    = errors.New("access and refresh secrets must differ")
	ErrBadExpiry     = errors.New("token expiry must be positive")
)

// AccessClaims is the identity carried by an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserName string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
}

// RefreshClaims carries only the subject; ID (jti) makes every token unique.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

type IssuerConfig struct {
	AccessSecret  []byte
	AccessExpiry  time.Duration
	RefreshSecret []byte
	RefreshExpiry time.Duration
}

// Issuer signs and verifies both token classes. It holds no mutable state.
type Issuer struct {
	cfg IssuerConfig
	now func() time.Time
}

type IssuerOption func(*Issuer)

// WithClock overrides the time source used for iat/exp and verification.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(cfg IssuerConfig, opts ...IssuerOption) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, ErrMissingSecret
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, ErrSameSecret
	}
	if cfg.AccessExpiry <= 0 || cfg.RefreshExpiry <= 0 {
		return nil, ErrBadExpiry
	}

	i := &Issuer{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

func (i *Issuer) AccessExpiry() time.Duration  { return i.cfg.AccessExpiry }
func (i *Issuer) RefreshExpiry() time.Duration { return i.cfg.RefreshExpiry }

// IssueAccessToken signs claims with the access secret. Subject must be set;
// IssuedAt and ExpiresAt are overwritten.
func (i *Issuer) IssueAccessToken(claims AccessClaims) (string, error) {
	if claims.Subject == "" {
		return "", fmt.Errorf("access token: empty subject")
	}
	now := i.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.cfg.AccessExpiry))

	return sign(claims, i.cfg.AccessSecret)
}

func (i *Issuer) IssueRefreshToken(subjectID string) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("refresh token: empty subject")
	}
	now := i.now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.RefreshExpiry)),
		},
	}

	return sign(claims, i.cfg.RefreshSecret)
}

func (i *Issuer) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(token, claims, i.cfg.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *Issuer) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(token, claims, i.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (i *Issuer) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return classify(err)
	}

	if !token.Valid {
		return ErrTokenMalformed
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ErrTokenMalformed
	}

	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
