package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer marks tokens minted locally while the remote service is unreachable.
const Issuer = "mock-auth"

// Claims defines the structured data we store in the JWT
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenManager creates a manager for locally minted tokens. A zero ttl
// produces tokens without an expiry.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secretKey: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a signed token for userID.
func (tm *TokenManager) GenerateToken(userID int64) (string, error) {
	now := tm.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			Subject:  strconv.FormatInt(userID, 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if tm.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tm.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(tm.now))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// IsLocal reports whether tokenString was minted by this manager.
func (tm *TokenManager) IsLocal(tokenString string) bool {
	_, err := tm.ValidateToken(tokenString)
	return err == nil
}
