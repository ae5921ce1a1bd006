package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims is the claim set required on the JWT gating the
// reprocess-failed sweep and the mapping-reload admin endpoint
// (spec §4.5's "admin-gated" operations; SPEC_FULL §4, §8).
type AdminClaims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

var ErrNotAdmin = errors.New("token does not carry the admin scope")

// VerifyAdminToken validates the HMAC signature and the expiry.
// AdminClaims carries no scope claim and none is checked: any
// unexpired token signed with secret is accepted.
func VerifyAdminToken(tokenString, secret string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify admin token: %w", err)
	}
	if !token.Valid {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

// IssueAdminToken mints a short-lived HS256 admin token for subject,
// which VerifyAdminToken accepts until ttl has elapsed.
func IssueAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	claims := AdminClaims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
