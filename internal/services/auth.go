package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldcare/fieldcare-backend/internal/platform/ctxutil"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

// AuthService validates bearer tokens. Accounts and credentials live
// outside this service; it only trusts the signature and the subject.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(userID uint) (string, error)
	AccessTTL() time.Duration
}

type JWTClaims struct {
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	identity     IdentityService
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(log *logger.Logger, identity IdentityService, jwtSecretKey string, accessTTL time.Duration) (AuthService, error) {
	if strings.TrimSpace(jwtSecretKey) == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		identity:     identity,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}, nil
}

func (as *authService) AccessTTL() time.Duration { return as.accessTTL }

func (as *authService) IssueToken(userID uint) (string, error) {
	if userID == 0 {
		return "", fmt.Errorf("user id required")
	}
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

// SetContextFromToken verifies the token, resolves the caller's profiles and
// attaches both to the returned context.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, fmt.Errorf("missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return ctx, fmt.Errorf("invalid user id in token")
	}
	id, err := as.identity.Resolve(ctx, uint(userID))
	if err != nil {
		return ctx, fmt.Errorf("resolve identity: %w", err)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      uint(userID),
		Identity:    &id,
	}), nil
}
