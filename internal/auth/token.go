package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// TokenManager issues and validates bearer tokens for staff and clients.
type TokenManager struct {
	secret    []byte
	staffTTL  time.Duration
	clientTTL time.Duration
	clock     clock.Clock
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, staffTTLMinutes, clientTTLMinutes int, clk clock.Clock) *TokenManager {
	if staffTTLMinutes <= 0 {
		staffTTLMinutes = 60
	}
	if clientTTLMinutes <= 0 {
		clientTTLMinutes = 7 * 24 * 60
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &TokenManager{
		secret:    []byte(secret),
		staffTTL:  time.Duration(staffTTLMinutes) * time.Minute,
		clientTTL: time.Duration(clientTTLMinutes) * time.Minute,
		clock:     clk,
	}
}

// Claims describes JWT payload. Client tokens carry the track number they
// are bound to instead of an account.
type Claims struct {
	Role        domain.Role `json:"role"`
	Email       string      `json:"email,omitempty"`
	TrackNumber string      `json:"track_number,omitempty"`
	jwt.RegisteredClaims
}

// GenerateStaffToken signs a token for an admin-portal user.
func (tm *TokenManager) GenerateStaffToken(user *domain.AdminUser) (string, time.Time, error) {
	return tm.sign(Claims{Role: user.Role, Email: user.Email}, user.ID, tm.staffTTL)
}

// GenerateClientToken signs a token bound to one request's track number.
func (tm *TokenManager) GenerateClientToken(trackNumber string) (string, time.Time, error) {
	return tm.sign(Claims{Role: domain.RoleClient, TrackNumber: trackNumber}, trackNumber, tm.clientTTL)
}

func (tm *TokenManager) sign(claims Claims, subject string, ttl time.Duration) (string, time.Time, error) {
	now := tm.clock.Now()
	expiresAt := now.Add(ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Role == domain.RoleClient && claims.TrackNumber == "" {
		return nil, errors.New("client token without track number")
	}
	return claims, nil
}
