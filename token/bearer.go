package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	sserrors "github.com/jrsteele09/go-server-session/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims are the claims carried by a session bearer token. SessionID is empty
// for anonymous bearers handed out when access is refused.
type Claims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Issuer creates and verifies session bearer tokens.
type Issuer struct {
	signer Signer
	issuer string
	ttl    time.Duration
}

func NewIssuer(signer Signer, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{
		signer: signer,
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue signs a bearer for subject. Pass an empty sessionID for an anonymous bearer.
func (i *Issuer) Issue(subject, sessionID string) (string, error) {
	now := NowTimeFunc()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.New().String(),
		},
	}
	bearer, err := i.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("[token Issue] %w", err)
	}
	return bearer, nil
}

// Verify validates signature, issuer and expiry and returns the claims.
func (i *Issuer) Verify(bearer string) (*Claims, error) {
	if strings.TrimSpace(bearer) == "" {
		return nil, sserrors.ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(bearer, claims, i.signer.GetVerificationKey,
		jwt.WithIssuer(i.issuer),
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(NowTimeFunc),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, sserrors.Wrapf(sserrors.ErrTokenExpired, "[token Verify]")
	}
	if err != nil {
		return nil, fmt.Errorf("[token Verify] %w: %v", sserrors.ErrInvalidToken, err)
	}
	return claims, nil
}

// Expiry reads the exp claim of a JWT bearer without verifying it. Clients use
// it for display only; ok is false for opaque or exp-less bearers.
func Expiry(bearer string) (exp time.Time, ok bool) {
	if bearer == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(bearer, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
