// Package jwt emite y verifica los pares access/refresh.
//
// Las dos clases de token se firman con secretos HMAC independientes:
// poseer el secreto de access no permite forjar refresh tokens ni al
// revés. Además cada token lleva el claim "token_use" para que un access
// nunca pueda presentarse donde se espera un refresh.
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Usos posibles del claim token_use.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

var (
	// ErrInvalidToken cubre firma inválida, expiración y token_use
	// incorrecto. El caller no necesita distinguir: todo mapea a 401.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims es el resultado de verificar un token.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// Issuer firma tokens con los secretos configurados.
type Issuer struct {
	Iss           string
	accessSecret  []byte
	refreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// NewIssuer valida la configuración de firma. Secretos vacíos o iguales
// son un error fatal de arranque, no algo a tolerar.
func NewIssuer(iss, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, fmt.Errorf("jwt: signing secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("jwt: access and refresh secrets must differ")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{
		Iss:           iss,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}, nil
}

// IssueAccess emite un access token (vida corta).
func (i *Issuer) IssueAccess(sub, email string) (string, time.Time, error) {
	return i.sign(sub, email, UseAccess, i.AccessTTL, i.accessSecret)
}

// IssueRefresh emite un refresh token (vida larga). El caller es
// responsable de registrar el hash en el ledger.
func (i *Issuer) IssueRefresh(sub, email string) (string, time.Time, error) {
	return i.sign(sub, email, UseRefresh, i.RefreshTTL, i.refreshSecret)
}

func (i *Issuer) sign(sub, email, use string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	// jti garantiza que dos tokens emitidos en el mismo segundo para el
	// mismo sujeto nunca compartan firma (y por lo tanto hash en el ledger)
	claims := jwtv5.MapClaims{
		"iss":       i.Iss,
		"sub":       sub,
		"email":     email,
		"token_use": use,
		"jti":       uuid.NewString(),
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"exp":       exp.Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAccess verifica firma, expiración y token_use=access.
func (i *Issuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(token, UseAccess, i.accessSecret)
}

// ParseRefresh verifica firma, expiración y token_use=refresh. Esta
// verificación es independiente del ledger: un token con firma válida
// igual puede estar ya rotado.
func (i *Issuer) ParseRefresh(token string) (*Claims, error) {
	return i.parse(token, UseRefresh, i.refreshSecret)
}

func (i *Issuer) parse(token, use string, secret []byte) (*Claims, error) {
	parsed, err := jwtv5.Parse(token,
		func(t *jwtv5.Token) (any, error) { return secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	mc, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if got, _ := mc["token_use"].(string); got != use {
		return nil, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := mc["email"].(string)
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}
	return &Claims{Subject: sub, Email: email, ExpiresAt: exp.Time}, nil
}
