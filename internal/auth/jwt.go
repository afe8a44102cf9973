package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vietddude/tema/internal/core/domain"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Config holds token settings.
type Config struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

type Claims struct {
	jwt.RegisteredClaims
	BeneficiaryUUID string `json:"beneficiary_uuid"`
	Kind            string `json:"kind"`
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.JWTSecret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &Issuer{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

func (i *Issuer) build(beneficiaryUUID, kind string, exp time.Duration) (string, string, error) {
	now := i.now()
	id := uuid.New().String()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   beneficiaryUUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
		},
		BeneficiaryUUID: beneficiaryUUID,
		Kind:            kind,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	return signed, id, err
}

// Issue returns an access/refresh pair and the refresh token id.
func (i *Issuer) Issue(beneficiaryUUID string) (domain.Tokens, string, error) {
	access, _, err := i.build(beneficiaryUUID, TokenAccess, i.accessTTL)
	if err != nil {
		return domain.Tokens{}, "", err
	}
	refresh, refreshID, err := i.build(beneficiaryUUID, TokenRefresh, i.refreshTTL)
	if err != nil {
		return domain.Tokens{}, "", err
	}
	return domain.Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    i.now().Add(i.accessTTL),
	}, refreshID, nil
}

// RefreshTTL is the lifetime of refresh tokens.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// Parse verifies token and requires it to be of kind.
func (i *Issuer) Parse(token, kind string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if c.Kind != kind {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return c, nil
}
