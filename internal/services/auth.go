package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/charpstar/pipeline-backend/internal/platform/ctxutil"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

// JWTClaims identifies the actor. Sessions are issued elsewhere; this service
// only verifies them.
type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// IssueToken signs a token for userID; used by tooling and tests.
	IssueToken(userID uuid.UUID, ttl time.Duration) (string, error)
}

type authService struct {
	log          *logger.Logger
	jwtSecretKey string
}

func NewAuthService(log *logger.Logger, jwtSecretKey string) AuthService {
	return &authService{
		log:          log.With("service", "AuthService"),
		jwtSecretKey: strings.TrimSpace(jwtSecretKey),
	}
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, fmt.Errorf("missing token")
	}
	if as.jwtSecretKey == "" {
		return ctx, fmt.Errorf("JWT_SECRET_KEY not configured")
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired JWT token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID}), nil
}

func (as *authService) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	if as.jwtSecretKey == "" {
		return "", fmt.Errorf("JWT_SECRET_KEY not configured")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}
